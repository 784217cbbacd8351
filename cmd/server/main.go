// Package main runs the memorial registry HTTP API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/simp-lee/memorial/internal/app"
	"github.com/simp-lee/memorial/internal/config"
)

// Set by build flags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "memorial:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fset := flag.NewFlagSet("memorial", flag.ContinueOnError)
	configPath := fset.String("config", "configs/config.yaml", "path to configuration file")
	envFile := fset.String("env-file", ".env", "optional dotenv file loaded before the config")
	checkOnly := fset.Bool("check", false, "validate the configuration and exit")
	showVersion := fset.Bool("version", false, "print version information and exit")
	if err := fset.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Printf("memorial %s (%s, %s)\n", version, commit, runtime.Version())
		return nil
	}

	// Variables already in the environment win over the file.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *checkOnly {
		fmt.Printf("%s: ok (driver %s, listening on %s:%d)\n", *configPath, cfg.Database.Driver, cfg.Server.Host, cfg.Server.Port)
		return nil
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	return a.Run()
}
