package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"github.com/a7al3le-dotcom/chat7ob/internal"
	"github.com/a7al3le-dotcom/chat7ob/repositories"
)

// viewer prints the audit trail of privileged moderation actions
// (kicks, message deletions, chat clears), newest first.
func main() {
	limit := flag.Int("limit", 50, "Maximum number of entries to display (0 = all)")
	flag.Parse()

	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the server) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Fetch & render
	audit := repositories.NewAuditRepository(db, logs.GetLoggerFromString(config.LogLevel))
	entries, err := audit.List(*limit)
	if err != nil {
		log.Fatalf("Failed to read audit trail: %v", err)
	}

	header := color.New(color.BgBlack, color.FgGreen).Render(
		fmt.Sprintf(" Audit trail (%d entries) ", len(entries)))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Action", "Actor", "Target", "Reason"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, entry := range entries {
		table.Append([]string{
			time.Unix(0, entry.AtUnix).Format("2006-01-02 15:04:05"),
			entry.Action,
			entry.Actor,
			entry.Target,
			entry.Reason,
		})
	}

	table.Render()
}
