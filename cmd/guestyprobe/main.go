// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Command guestyprobe checks Guesty credentials and API access from the
// command line. It prints the diagnostics report as JSON and exits 1 when
// either probe fails.
//
//	guestyprobe -endpoint 'v1/listings?limit=1' -timeout 30s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/diagnostics"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("guestyprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("endpoint", diagnostics.DefaultEndpoint, "relative Guesty API path to probe")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "guestyprobe: read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "guestyprobe: %v\n", err)
		return 1
	}
	logging.Init(logging.Config{Level: "warn", Format: "console", Output: stderr})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	prober := diagnostics.NewProber(guesty.NewTokenProvider(cfg.Guesty), guesty.NewClient(cfg.Guesty))
	report, err := prober.Run(ctx, *endpoint)
	if err != nil {
		fmt.Fprintf(stderr, "guestyprobe: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "guestyprobe: encode report: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))

	if !report.OK {
		return 1
	}
	return 0
}
