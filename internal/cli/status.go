// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command handler for the chatcore CLI.
//
// Handles "chatcore status", which reports backend reachability, session
// state, and cache health in one glance.

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/chatcore/internal/config"
)

// HandleStatus processes the status command.
func HandleStatus(args *Args) {
	app, err := NewApp(args)
	if err != nil {
		Fatal(err)
	}
	defer app.Close()

	fmt.Printf("chatcore %s\n\n", Version)
	fmt.Printf("  Backend:  %s\n", app.Config.API.BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := app.Client.Health(ctx); err != nil {
		fmt.Printf("  Health:   unreachable (%v)\n", err)
	} else {
		fmt.Printf("  Health:   ok (%s)\n", formatDuration(time.Since(start)))
	}

	if app.Session.SignedIn() {
		fmt.Printf("  Session:  signed in (token %s, %s remaining)\n",
			app.Client.SessionFingerprint(), formatDuration(app.Session.RemainingTime()))
	} else {
		fmt.Println("  Session:  signed out")
	}

	if app.Config.Cache.Enabled {
		stats := app.Cache.Stats()
		fmt.Printf("  Cache:    %d/%d entries, %.0f%% hit rate\n",
			stats.EntryCount, stats.MaxEntries, stats.HitRate*100)
	} else {
		fmt.Println("  Cache:    disabled")
	}

	fmt.Printf("  Model:    %s\n", app.Config.DefaultModel)

	if args.Verbose {
		if p, err := config.ConfigPath(); err == nil {
			fmt.Fprintf(os.Stderr, "\nConfig: %s\n", p)
		}
	}
}
