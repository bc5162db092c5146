// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify dispatches transient user-facing notifications.
//
// Failures in the client layers are never fatal; they surface as a
// notification the frontend renders however it likes (a toast, a status
// line). The dispatcher only fans out: it holds no queue and drops nothing,
// each subscriber sees every notification in publish order. Severity maps
// to a suggested auto-dismiss duration the way transient toasts behave.
package notify
