package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/getsentry/sentry-go"

	"github.com/smell-of-curry/warden/warden"
	"github.com/smell-of-curry/warden/warden/logging"
)

// init ...
func init() {
	chat.Global.Subscribe(chat.StdoutSubscriber{})
}

// main ...
func main() {
	conf, err := warden.ReadConfig()
	if err != nil {
		panic(err)
	}

	level, err := warden.ParseLogLevel(conf.Warden.LogLevel)
	if err != nil {
		slog.Warn("falling back to info logging", "error", err)
	}
	if dsn := conf.Warden.SentryDsn; dsn != "" {
		if err = sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			panic(err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	log := slog.New(logging.NewSentryHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}), nil))
	slog.SetDefault(log)

	w, err := warden.New(log, conf)
	if err != nil {
		panic(err)
	}

	w.Start()
}
