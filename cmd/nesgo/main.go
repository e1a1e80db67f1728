// Command nesgo runs the console against a cartridge file, opening an
// ebiten window as the frame sink.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	flag "github.com/spf13/pflag"

	"github.com/kvartal/nesgo/console"
)

// traceLevel and allLevel sit below slog's built-in Debug level, used
// for --log-level trace/all.
const (
	traceLevel = slog.LevelDebug - 4
	allLevel   = slog.LevelDebug - 8
)

var logLevels = map[string]slog.Level{
	"none":  slog.LevelError + 4, // effectively silences logging
	"error": slog.LevelError,
	"warn":  slog.LevelWarn,
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": traceLevel,
	"all":   allLevel,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("nesgo", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: nesgo [flags] <rom-path>\n\n")
		fs.PrintDefaults()
	}

	logLevel := fs.String("log-level", "info", "log verbosity: none, error, warn, info, debug, trace, all")
	logFile := fs.String("log-file", "", "write logs to this file instead of stderr")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fs.Usage()
		return 1
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}

	level, ok := logLevels[*logLevel]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown --log-level %q\n", *logLevel)
		fs.Usage()
		return 1
	}

	out := os.Stderr
	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open --log-file %q: %v\n", *logFile, err)
			return 1
		}
		defer f.Close()
		out = f
	}

	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	nes := console.New(log)
	if err := nes.Load(fs.Arg(0)); err != nil {
		log.Error("could not load rom", "err", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go nes.Run(ctx)

	if err := ebiten.RunGame(nes); err != nil {
		log.Error("emulation stopped", "err", err)
		nes.PowerOff()
		return 1
	}

	nes.PowerOff()
	return 0
}
