// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared wiring for CLI command handlers.

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/chatcore/internal/api"
	"github.com/jeranaias/chatcore/internal/auth"
	"github.com/jeranaias/chatcore/internal/cache"
	"github.com/jeranaias/chatcore/internal/chat"
	"github.com/jeranaias/chatcore/internal/config"
	"github.com/jeranaias/chatcore/internal/notify"
	"github.com/jeranaias/chatcore/internal/queue"
	"github.com/jeranaias/chatcore/internal/ratelimit"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App bundles the wired-up client stack every command handler needs.
// Constructed per invocation, never a package-level singleton, so tests
// stay hermetic.
type App struct {
	Config   *config.Config
	Cache    *cache.Cache
	Snapshot *cache.SnapshotStore
	Client   *api.Client
	Cached   *api.CachedClient
	Limiter  *ratelimit.Limiter
	Notifier *notify.Notifier
	Engine   *chat.Engine
	Session  *auth.Manager
	Jobs     *queue.Queue
	Runner   *queue.Runner

	sweepCancel context.CancelFunc
}

// NewApp loads configuration and wires the full client stack.
func NewApp(args *Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.Model != "" {
		cfg.DefaultModel = args.Model
	}

	app := &App{Config: cfg}

	// Cache, optionally warmed from the persisted snapshot.
	app.Cache = cache.New(cfg.Cache.MaxEntries, cfg.CacheTTL())
	if cfg.Cache.Enabled {
		if path, err := cfg.SnapshotPath(); err == nil {
			if snap, err := cache.OpenSnapshot(path); err == nil {
				app.Snapshot = snap
				if err := snap.Load(app.Cache); err != nil {
					log.Printf("Cache snapshot load failed, starting empty: %v", err)
				}
			} else if args.Verbose {
				log.Printf("Cache snapshot unavailable: %v", err)
			}
		}
		sweepCtx, cancel := context.WithCancel(context.Background())
		app.sweepCancel = cancel
		app.Cache.StartSweep(sweepCtx, cfg.SweepInterval())
	}

	// API client plus the cached read path.
	app.Client = api.New(cfg.API.BaseURL).
		WithMaxRetries(cfg.API.MaxRetries).
		WithRetryDelay(cfg.RetryDelay()).
		WithTimeout(cfg.Timeout())
	app.Cached = api.NewCached(app.Client, app.Cache)

	app.Limiter = ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateWindow())

	// Toasts go to stderr so piped stdout stays clean.
	app.Notifier = notify.New()
	if !args.Quiet {
		app.Notifier.Subscribe(func(n notify.Notification) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
		})
	}

	app.Engine = chat.NewEngine(app.Client, app.Notifier)

	// Background dispatch for non-streaming backend writes. Failures
	// surface as notifications, never as prompt-loop errors.
	app.Jobs = queue.New(cfg.Queue.MaxSize)
	app.Runner = queue.NewRunner(app.Jobs).
		WithMaxAttempts(cfg.Queue.MaxAttempts).
		WithRetryDelay(cfg.QueueRetryDelay())
	app.Runner.Start()
	go forwardQueueNotifications(app.Jobs, app.Notifier)

	// Session: events drive credential swaps and cache invalidation.
	app.Session = auth.NewManager().WithWarningBefore(cfg.RefreshBefore())
	app.Session.Subscribe(func(ev auth.Event) {
		switch ev.Type {
		case auth.EventSignedIn, auth.EventTokenRefreshed:
			app.Client.SetSession(app.Session.Token())
		case auth.EventSignedOut:
			app.Client.ClearSession()
			app.Cached.ClearUserData()
		}
	})

	if token := resolveToken(cfg); token != "" {
		app.Session.SignIn(token, time.Time{})
	}

	return app, nil
}

// resolveToken finds the session token: config/env first, then the
// encrypted store.
func resolveToken(cfg *config.Config) string {
	if cfg.API.Token != "" {
		return cfg.API.Token
	}

	passphrase := os.Getenv("CHATCORE_PASSPHRASE")
	if passphrase == "" {
		return ""
	}
	path, err := cfg.TokenPath()
	if err != nil {
		return ""
	}
	token, err := auth.NewTokenStore(path).Load(passphrase)
	if err != nil {
		return ""
	}
	return token
}

// forwardQueueNotifications turns terminal queue states into user-facing
// notifications.
func forwardQueueNotifications(q *queue.Queue, notifier *notify.Notifier) {
	for n := range q.Notifications() {
		switch n.Status {
		case queue.StatusFailed:
			notifier.Warning(fmt.Sprintf("%s failed: %s", n.Description, n.Error))
		case queue.StatusCanceled:
			notifier.Info(fmt.Sprintf("%s canceled", n.Description))
		}
	}
}

// Close flushes the cache snapshot and releases resources.
func (a *App) Close() {
	if a.Runner != nil {
		a.Runner.Stop()
	}
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	if a.Snapshot != nil {
		if err := a.Snapshot.Save(a.Cache); err != nil {
			log.Printf("Cache snapshot save failed: %v", err)
		}
		_ = a.Snapshot.Close()
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// Fatal prints an error and exits.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// formatDuration returns a compact human-readable duration.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// truncate shortens a string to at most n runes for table display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
