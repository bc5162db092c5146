// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model listing command handler for the chatcore CLI.
//
// Handles "chatcore models", which lists the models the backend exposes.
// Results come through the cached client, so repeated calls inside the TTL
// window do not hit the network.

package cli

import (
	"context"
	"fmt"
	"time"
)

// HandleModels processes the models command.
func HandleModels(args *Args) {
	app, err := NewApp(args)
	if err != nil {
		Fatal(err)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	models, err := app.Cached.ListModels(ctx)
	if err != nil {
		Fatal(err)
	}

	if len(models) == 0 {
		fmt.Println("No models available.")
		return
	}

	fmt.Printf("%-24s %-12s %s\n", "ID", "CONTEXT", "NAME")
	for _, m := range models {
		marker := " "
		if m.ID == app.Config.DefaultModel || m.Default {
			marker = "*"
		}
		fmt.Printf("%s%-23s %-12d %s\n", marker, m.ID, m.ContextSize, truncate(m.Name, 48))
	}
}
