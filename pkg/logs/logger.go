// Package logs builds the slog.Logger shared by the binaries.
package logs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Options selects the sinks of a logger. The terminal sink is always on.
type Options struct {
	// Terminal receives human readable text. Required.
	Terminal io.Writer
	// Level applies to the terminal and JSON sinks. Defaults to info.
	Level slog.Leveler
	// JSON, if set, additionally receives one JSON object per record.
	JSON io.Writer
	// Journal additionally sends records to the systemd journal. When the
	// journal is unreachable a warning is logged and the logger works
	// without it.
	Journal bool
}

// New returns a logger fanning out to every sink named in opts.
func New(opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	terminalHandler := slog.NewTextHandler(opts.Terminal, handlerOpts)
	handlers := []slog.Handler{terminalHandler}

	if opts.JSON != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.JSON, handlerOpts))
	}

	if opts.Journal {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
			record.Add("error", err)
			_ = terminalHandler.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// toJournalKey maps an attribute key to the upper case field names the
// journal accepts.
func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}
