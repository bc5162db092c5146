// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ModelInfo describes a model the backend can generate with.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContextSize int    `json:"context_length"`
	// Default marks the model the backend selects when a request
	// names none.
	Default bool `json:"default,omitempty"`
}
