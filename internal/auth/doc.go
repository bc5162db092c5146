// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the hosted-identity session: the opaque token, its
// lifecycle events, and expiry tracking.
//
// Session state changes are published as events (signed-in, signed-out,
// token-refreshed) so other layers can react without this package knowing
// about them: the API client swaps credentials, the cache drops user data
// on sign-out.
//
// Key Types:
//   - Manager: session state, event fan-out, expiry and refresh handling
//   - TokenStore: encrypted at-rest persistence of the session token
//     (PBKDF2-derived AES-GCM; the token never touches disk in plaintext)
//
// The token itself never appears in events, logs, or error messages; only
// SHA-256 fingerprints are exposed for display.
package auth
