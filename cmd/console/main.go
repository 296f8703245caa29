package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"

	"brain/pkg/compiler"
	"brain/pkg/logs"
	"brain/pkg/tape"
	"brain/pkg/utils"
)

// checkpointEvery is how many steps run between checks of the checkpoint
// ticker and of ctx.
const checkpointEvery = 4096

type options struct {
	show       bool
	steps      int
	cells      int
	hibernate  string
	resume     string
	checkpoint time.Duration
}

func main() {
	var opts options
	flag.BoolVar(&opts.show, "show", false, "print the generated program before running it")
	flag.IntVar(&opts.steps, "steps", 0, "stop after this many steps (0 for no limit)")
	flag.IntVar(&opts.cells, "cells", tape.DefaultCells, "tape length")
	flag.StringVar(&opts.hibernate, "hibernate", "", "save the machine to this file when the run stops early")
	flag.StringVar(&opts.resume, "resume", "", "continue a machine saved with -hibernate instead of compiling")
	flag.DurationVar(&opts.checkpoint, "checkpoint", 0, "also save to the -hibernate file at this interval")
	flag.Parse()

	log := logs.New(logs.Options{Terminal: os.Stderr, Level: slog.LevelWarn})

	if opts.resume == "" && flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [flags] <source file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := load(opts, flag.Arg(0), os.Stdin, os.Stdout)
	if err != nil {
		log.Error("load failed", "error", err)
		os.Exit(1)
	}
	if err := runConsole(ctx, m, opts, log); err != nil {
		log.Error("run stopped", "steps", m.Steps, "line", m.Line(), "error", err)
		os.Exit(1)
	}
}

// load builds the machine either from a source file or from a hibernated
// archive.
func load(opts options, path string, in io.Reader, out io.Writer) (*tape.Machine, error) {
	machineOpts := []tape.Option{
		tape.WithCells(opts.cells),
		tape.WithStepLimit(opts.steps),
		tape.WithIO(in, out),
	}
	if opts.resume != "" {
		data, err := os.ReadFile(opts.resume)
		if err != nil {
			return nil, errors.Wrap(err, "reading hibernation file")
		}
		return tape.RestoreFromBytes(data, machineOpts...)
	}

	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	src, err := utils.ReadSource(fullPath)
	if err != nil {
		return nil, err
	}
	text, err := compiler.Compile(src)
	if err != nil {
		return nil, err
	}
	if opts.show {
		fmt.Fprintf(out, "Generated program:\n%s\n", text)
	}
	prog, err := tape.Assemble(text)
	if err != nil {
		return nil, err
	}
	return tape.NewMachine(prog, machineOpts...), nil
}

// runConsole runs m to completion. A run cut short by ctx or the step limit
// is saved to opts.hibernate when set, and with opts.checkpoint the machine
// is also saved periodically while it runs.
func runConsole(ctx context.Context, m *tape.Machine, opts options, log *slog.Logger) error {
	var tick <-chan time.Time
	if opts.checkpoint > 0 && opts.hibernate != "" {
		ticker := time.NewTicker(opts.checkpoint)
		defer ticker.Stop()
		tick = ticker.C
	}

	var err error
	for !m.Halted && err == nil {
		select {
		case <-tick:
			if err := save(m, opts.hibernate); err != nil {
				log.Warn("checkpoint failed", "error", err)
			}
		default:
		}
		err = runSlice(ctx, m, opts.steps)
	}
	if err == nil {
		return nil
	}
	if opts.hibernate != "" && (errors.Is(err, tape.ErrStepLimit) || errors.Is(err, context.Canceled)) {
		if serr := save(m, opts.hibernate); serr != nil {
			return errors.Wrap(serr, "hibernating")
		}
		log.Warn("machine hibernated", "file", opts.hibernate, "steps", m.Steps)
	}
	return err
}

// runSlice executes up to checkpointEvery steps.
func runSlice(ctx context.Context, m *tape.Machine, limit int) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	for i := 0; i < checkpointEvery && !m.Halted; i++ {
		if limit > 0 && m.Steps >= limit {
			return errors.WithStack(tape.ErrStepLimit)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

func save(m *tape.Machine, path string) error {
	data, err := m.HibernateToBytes()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %q", path)
}
