package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JaimeStill/landflux/internal/communities"
	"github.com/JaimeStill/landflux/internal/config"
	"github.com/JaimeStill/landflux/internal/forests"
	"github.com/JaimeStill/landflux/internal/workflow"
	"github.com/JaimeStill/landflux/pkg/formatting"
)

const usage = `usage: landflux <command> [flags]

commands:
  forests      evaluate every forest zone over every configured period
  communities  evaluate every community zone with tree canopy and TOF factors
  runs         list runs in the results store
  version      print the configured version

run "landflux <command> -h" for command flags`

type analysis func(context.Context, *workflow.Runtime) (*workflow.Summary, error)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("env load failed:", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case forests.Command:
		err = analyze(cmd, args, forests.Run)
	case communities.Command:
		err = analyze(cmd, args, communities.Run)
	case "runs":
		err = listRuns(args)
	case "version":
		err = version(args)
	case "-h", "-help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	path := flags.String("config", config.BaseConfigFile, "Run configuration file")
	return flags, path
}

func analyze(name string, args []string, fn analysis) error {
	flags, path := newFlagSet(name)
	workers := flags.Int("workers", 0, "Override the number of concurrent units")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if *workers > 0 {
		cfg.Analysis.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
			app.infra.Logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := app.Start(true); err != nil {
		return err
	}

	summary, err := fn(ctx, app.runtime)
	if err != nil {
		return err
	}

	printSummary(os.Stdout, summary)
	return nil
}

func printSummary(w io.Writer, s *workflow.Summary) {
	fmt.Fprintf(w, "output:  %s\n", s.Folder)
	fmt.Fprintf(w, "units:   %s evaluated, %s skipped\n",
		formatting.Integer(float64(s.Units-s.Skipped)),
		formatting.Integer(float64(s.Skipped)),
	)
	fmt.Fprintf(w, "issues:  %s\n", formatting.Integer(float64(s.Issues)))
	if s.Run != nil {
		fmt.Fprintf(w, "run:     %s (%s)\n", s.Run.ID, s.Run.Elapsed().Round(time.Millisecond))
	}
	for _, f := range s.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

func version(args []string) error {
	flags, path := newFlagSet("version")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	fmt.Printf("landflux %s (%s)\n", cfg.Version, cfg.Env())
	return nil
}
