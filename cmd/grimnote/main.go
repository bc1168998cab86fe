// Package main provides the grimnote companion application. It attaches
// a driven browser to the host game lobby, annotates known players from
// the personal roster, and offers a terminal roster browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/grimnote/pkg/app"
	"github.com/entrhq/grimnote/pkg/config"
	"github.com/entrhq/grimnote/pkg/roster"
	"github.com/entrhq/grimnote/pkg/ui"
)

const version = "0.1.0"

// cliOptions holds the parsed command line.
type cliOptions struct {
	configPath  string
	hostURL     string
	dataDir     string
	headless    bool
	showVersion bool
	command     string
}

func main() {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("grimnote v%s\n", version)
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	switch opts.command {
	case "roster":
		if err := runRoster(cfg); err != nil {
			log.Fatalf("Roster browser error: %v", err)
		}
	case "attach", "":
		if err := runAttach(cfg); err != nil {
			log.Fatalf("Attach error: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", opts.command)
		printUsage()
		os.Exit(1)
	}
}

func parseFlags() cliOptions {
	var opts cliOptions

	flag.StringVar(&opts.configPath, "config", "", "Path to config file (default ~/.grimnote/config.yaml)")
	flag.StringVar(&opts.hostURL, "host", "", "Host page URL to attach to")
	flag.StringVar(&opts.dataDir, "data-dir", "", "Directory for the roster file and logs")
	flag.BoolVar(&opts.headless, "headless", false, "Run the driven browser without a window")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version information")
	flag.Usage = printUsage
	flag.Parse()

	opts.command = flag.Arg(0)
	return opts
}

// loadConfig layers the command line over the file and environment.
func loadConfig(opts cliOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.hostURL != "" {
		cfg.HostURL = opts.hostURL
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.headless {
		cfg.Headless = true
	}
	return cfg, cfg.Validate()
}

// runAttach drives the browser session until interrupted.
func runAttach(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nDetaching...")
		cancel()
	}()

	return app.New(cfg).Run(ctx)
}

// runRoster opens the roster browser over the persisted roster, without
// attaching a browser session.
func runRoster(cfg config.Config) error {
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	storage, err := roster.NewFileStorage(dataDir)
	if err != nil {
		return err
	}
	store := roster.NewStore(storage, nil)
	if err := store.Load(); err != nil {
		return err
	}
	return ui.RunRoster(store)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `grimnote v%s - known-player notes for the game lobby

Usage:
  grimnote [flags]          Attach to the host page and annotate it
  grimnote [flags] roster   Browse the saved roster in the terminal

Flags:
`, version)
	flag.PrintDefaults()
}
