// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the chatcore CLI.
//
// Handles "chatcore chat", a line-oriented REPL that keeps a conversation
// going across turns. Slash commands control the session:
//
//   /new     start a fresh conversation
//   /model   show or switch the active model
//   /clear   clear cached data
//   /quit    exit
//
// The session watches the config file: edits to it apply between turns
// without restarting (a -m flag pins the model against reloads).

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/jeranaias/chatcore/internal/api"
	"github.com/jeranaias/chatcore/internal/config"
	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/notify"
	"github.com/jeranaias/chatcore/internal/queue"
)

// chatSettings holds the per-session settings a config reload may change.
// The watcher goroutine writes, the prompt loop reads.
type chatSettings struct {
	mu     sync.Mutex
	model  string
	pinned bool // model set by -m flag; reloads leave it alone
}

func newChatSettings(model string, pinned bool) *chatSettings {
	return &chatSettings{model: model, pinned: pinned}
}

// Model returns the active model.
func (s *chatSettings) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel switches the active model and pins it against reloads.
func (s *chatSettings) SetModel(m string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	s.pinned = true
}

// applyReload picks up settings from a freshly loaded config.
func (s *chatSettings) applyReload(cfg *config.Config, notifier *notify.Notifier) {
	s.mu.Lock()
	changed := !s.pinned && cfg.DefaultModel != "" && cfg.DefaultModel != s.model
	if changed {
		s.model = cfg.DefaultModel
	}
	s.mu.Unlock()

	if changed {
		notifier.Info(fmt.Sprintf("Config reloaded. Model is now %s.", cfg.DefaultModel))
	}
}

// syncConversation enqueues backend creation of a local conversation so a
// transient backend failure retries in the background instead of blocking
// the prompt loop.
func syncConversation(q *queue.Queue, backend *api.CachedClient, conv *model.Conversation) error {
	title, modelID := conv.Title, conv.Model
	return q.Add(queue.NewRequest("conversation sync", func(ctx context.Context) error {
		_, err := backend.CreateConversation(ctx, title, modelID)
		return err
	}))
}

// HandleChat processes the chat command.
func HandleChat(args *Args) {
	app, err := NewApp(args)
	if err != nil {
		Fatal(err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := newChatSettings(app.Config.DefaultModel, args.Model != "")
	conv := model.NewConversationWithModel(settings.Model())

	// Config edits apply between turns for the lifetime of the session.
	if path, err := config.ConfigPath(); err == nil {
		if w, err := config.NewWatcher(path, func(next *config.Config) {
			settings.applyReload(next, app.Notifier)
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			} else {
				w.Close()
			}
		}
	}

	if !args.Quiet {
		fmt.Printf("chatcore %s | model %s | /quit to exit\n", Version, settings.Model())
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if handleSlashCommand(app, conv, line, settings) {
				return
			}
			continue
		}

		if !app.Limiter.Allow("chat") {
			app.Notifier.Warning("Rate limit reached. Try again shortly.")
			continue
		}

		conv.AddUserMessage(line)

		// First message fixes the title; mirror the conversation to the
		// backend off the prompt loop.
		if conv.MessageCount() == 1 {
			if err := syncConversation(app.Jobs, app.Cached, conv); err != nil {
				app.Notifier.Warning(fmt.Sprintf("Conversation sync deferred: %v", err))
			}
		}

		req := api.GenerateRequest{
			ConversationID: conv.ID,
			Model:          settings.Model(),
			Prompt:         line,
		}

		var printed int
		msg, err := app.Engine.Stream(ctx, conv.ID, req, func(m *model.Message) {
			fmt.Print(m.Content[printed:])
			printed = len(m.Content)
		})
		fmt.Println()

		switch {
		case err == nil:
			if msg != nil {
				conv.AddMessage(msg)
			}
		case errors.Is(err, context.Canceled):
			// Partial reply already printed; keep it in the transcript.
			if msg != nil {
				conv.AddMessage(msg)
			}
			if ctx.Err() != nil {
				return
			}
		default:
			app.Notifier.Error(err.Error())
		}
	}
}

// handleSlashCommand dispatches an in-chat command. Returns true when the
// session should end.
func handleSlashCommand(app *App, conv *model.Conversation, line string, settings *chatSettings) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true
	case "/new":
		*conv = *model.NewConversationWithModel(settings.Model())
		fmt.Println("Started a new conversation.")
	case "/model":
		if len(fields) > 1 {
			settings.SetModel(fields[1])
			fmt.Printf("Switched to model %s.\n", fields[1])
		} else {
			fmt.Printf("Active model: %s\n", settings.Model())
		}
	case "/clear":
		app.Cache.Clear()
		fmt.Println("Cache cleared.")
	case "/help":
		fmt.Println("Commands: /new /model [name] /clear /quit")
	default:
		fmt.Printf("Unknown command %s. Try /help.\n", fields[0])
	}
	return false
}
