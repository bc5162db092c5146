// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for the chatcore CLI.
//
// Handles "chatcore ask", which sends one prompt to the backend and streams
// the reply to stdout.
//
// Examples:
//   chatcore ask "What changed in the last release?"
//   chatcore ask -m large-v2 "Explain this stack trace"

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/chatcore/internal/api"
	"github.com/jeranaias/chatcore/internal/model"
)

// HandleAsk processes the ask command.
func HandleAsk(args *Args) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: chatcore ask \"question\"")
		os.Exit(1)
	}

	app, err := NewApp(args)
	if err != nil {
		Fatal(err)
	}
	defer app.Close()

	if !app.Limiter.Allow("ask") {
		app.Notifier.Warning("Rate limit reached. Try again shortly.")
		os.Exit(1)
	}

	// Ctrl-C cancels the stream but keeps the partial reply printed so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := api.GenerateRequest{
		Model:  app.Config.DefaultModel,
		Prompt: query,
	}

	var printed int
	msg, err := app.Engine.Stream(ctx, "ask", req, func(m *model.Message) {
		// Each publication carries the full accumulated content; print
		// only the newly appended tail.
		fmt.Print(m.Content[printed:])
		printed = len(m.Content)
	})
	fmt.Println()

	if err != nil && !errors.Is(err, context.Canceled) {
		Fatal(err)
	}

	if msg != nil && args.Verbose {
		fmt.Fprintf(os.Stderr, "\n%d tokens | %.1f tok/s | first token %s | total %s\n",
			msg.TokenCount, msg.TokensPerSec,
			formatDuration(msg.TTFT), formatDuration(msg.TotalDuration))
	}
}
