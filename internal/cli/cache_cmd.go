// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cache_cmd.go - Cache management command handler for the chatcore CLI.
//
// Handles "chatcore cache <stats|clear|sweep>".

package cli

import (
	"fmt"
	"os"
)

// HandleCache processes the cache command.
func HandleCache(args *Args) {
	app, err := NewApp(args)
	if err != nil {
		Fatal(err)
	}
	defer app.Close()

	if !app.Config.Cache.Enabled {
		fmt.Println("Cache is disabled.")
		return
	}

	switch args.Subcommand {
	case "", "stats":
		stats := app.Cache.Stats()
		fmt.Printf("Entries:  %d / %d\n", stats.EntryCount, stats.MaxEntries)
		fmt.Printf("Hits:     %d\n", stats.Hits)
		fmt.Printf("Misses:   %d\n", stats.Misses)
		fmt.Printf("Hit rate: %.0f%%\n", stats.HitRate*100)
		if path, err := app.Config.SnapshotPath(); err == nil {
			fmt.Printf("Snapshot: %s\n", path)
		}
	case "clear":
		app.Cache.Clear()
		fmt.Println("Cache cleared.")
	case "sweep":
		removed := app.Cache.Sweep()
		fmt.Printf("Swept %d expired entries.\n", removed)
	default:
		fmt.Fprintf(os.Stderr, "Unknown cache subcommand %q. Use stats, clear, or sweep.\n", args.Subcommand)
		os.Exit(1)
	}
}
