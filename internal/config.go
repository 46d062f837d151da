package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	TokenSecret string `env:"TOKEN_SECRET,required=true"`
	TokenIssuer string `env:"TOKEN_ISSUER,default=chat7ob"`

	MessageCap int `env:"MESSAGE_CAP,default=200"`
	TailSize   int `env:"TAIL_SIZE,default=50"`

	GracePeriod    time.Duration `env:"GRACE_PERIOD,default=5s"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL,default=30s"`
	MetricInterval time.Duration `env:"METRIC_INTERVAL,default=30s"`

	RateWindow          time.Duration `env:"RATE_WINDOW,default=60s"`
	ConnectionRateLimit int           `env:"CONNECTION_RATE_LIMIT,default=100"`
	MessageRateLimit    int           `env:"MESSAGE_RATE_LIMIT,default=15"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
