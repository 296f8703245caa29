//go:build !js

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
	"go.uber.org/multierr"

	"brain/pkg/compiler"
	"brain/pkg/logs"
	"brain/pkg/tape"
	"brain/pkg/utils"
)

const usage = `usage: brain [flags] <input>

Compiles a source file to tape program text.

`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is the whole command line tool. It returns the process exit status:
// 0 on success, 1 when compiling or running fails and 2 for bad usage.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("brain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	outPath := fs.String("o", "", "output file path (default: input name with "+utils.TargetExt+" extension; - for stdout)")
	wrap := fs.Int("wrap", 0, "break the output into lines of at most this many symbols")
	runProgram := fs.Bool("run", false, "run the compiled program on the tape machine")
	cells := fs.Int("cells", tape.DefaultCells, "tape length used by -run")
	steps := fs.Int("steps", 0, "stop -run after this many steps (0 for no limit)")
	verbose := fs.Bool("v", false, "log declarations and cell releases")
	logJSON := fs.String("log-json", "", "also write JSON logs to this file")
	journal := fs.Bool("journal", false, "also send logs to the systemd journal")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	inPath := fs.Arg(0)

	logOpts := logs.Options{Terminal: stderr, Journal: *journal}
	if *verbose {
		logOpts.Level = slog.LevelDebug
	}
	if *logJSON != "" {
		f, err := os.Create(*logJSON)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open log file %q: %v\n", *logJSON, err)
			return 1
		}
		defer f.Close()
		logOpts.JSON = f
	}
	log := logs.New(logOpts)
	errAttr := func(err error) slog.Attr {
		if *verbose {
			return slog.String("error", fmt.Sprintf("%+v", err))
		}
		return slog.Any("error", err)
	}

	src, err := utils.ReadSource(inPath)
	if err != nil {
		log.Error("read failed", errAttr(err))
		return 1
	}
	start := time.Now()
	ops, err := compiler.CompileOps(src, compiler.WithLogger(log))
	if err != nil {
		log.Error("compilation failed", "file", inPath, errAttr(err))
		return 1
	}

	output := *outPath
	if output == "" {
		output = utils.DefaultOutputPath(inPath)
	}
	if err := writeProgram(output, stdout, ops, *wrap); err != nil {
		log.Error("write failed", "file", output, errAttr(err))
		return 1
	}
	log.Info("compiled", "file", inPath, "out", output, "ops", len(ops), "elapsed", time.Since(start))

	if !*runProgram {
		return 0
	}
	prog, err := tape.Assemble(compiler.Serialize(ops))
	if err != nil {
		log.Error("assembly failed", errAttr(err))
		return 1
	}
	m := tape.NewMachine(prog,
		tape.WithCells(*cells),
		tape.WithStepLimit(*steps),
		tape.WithIO(stdin, stdout),
	)
	start = time.Now()
	if err := m.Run(ctx); err != nil {
		log.Error("run failed", "steps", m.Steps, errAttr(err))
		return 1
	}
	log.Info("run complete", "steps", m.Steps, "head", m.Head, "elapsed", time.Since(start))
	return 0
}

// writeProgram writes the program text to path, or to stdout when path
// is "-".
func writeProgram(path string, stdout io.Writer, ops []compiler.Operation, wrap int) (err error) {
	if path == "-" {
		return compiler.SerializeTo(stdout, ops, wrap)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return compiler.SerializeTo(f, ops, wrap)
}
