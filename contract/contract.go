//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound events for a single connected actor.
// Implementations must not block the caller; slow consumers drop.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry resolves connection ids to their active sinks.
type IRegistry interface {
	Subscribe(connectionID string, sink EventSink)
	Unsubscribe(connectionID string)
	Get(connectionID string) (EventSink, bool)
	All() []EventSink
}

// ICoordinator serializes every state-changing chat operation behind a
// single lock so each event's read-modify-broadcast sequence is atomic.
type ICoordinator interface {
	Join(ctx context.Context, cmd domain.JoinCommand) error
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) error
	RestoreSession(ctx context.Context, cmd domain.RestoreSessionCommand) error
	Disconnect(connectionID string)
	Kick(ctx context.Context, cmd domain.KickCommand) error
	DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error
	ClearChat(ctx context.Context, cmd domain.ClearChatCommand) error
	Search(ctx context.Context, cmd domain.SearchCommand) error
}

// IAuditRepository records privileged actions for later inspection.
type IAuditRepository interface {
	Store(entry AuditEntry) error
}

// AuditEntry is one privileged action taken by a moderator or admin.
type AuditEntry struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Actor  string `json:"actor"`
	Target string `json:"target,omitempty"`
	Reason string `json:"reason,omitempty"`
	AtUnix int64  `json:"at"`
}
