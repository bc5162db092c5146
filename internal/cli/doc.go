// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chatcore command-line interface.
//
// Parsing is flag-less in the git style: a verb (ask, chat, models, status,
// cache, session), global -q/-v/-m switches, and verb-specific positionals.
// Each handler constructs an App, the per-invocation wiring of config,
// cache, API client, rate limiter, notifier, engine, request queue, and
// session manager. Nothing is a package-level singleton, so tests stay
// hermetic.
package cli
