// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"

	"github.com/jeranaias/chatcore/internal/cache"
	"github.com/jeranaias/chatcore/internal/model"
)

// Cache key prefixes. Keys are namespaced so user-scoped data can be
// invalidated without touching public data like the model list.
const (
	keyConversations = "conversations"
	keyConversation  = "conversation:"
	keyMessages      = "messages:"
	keyModels        = "models"
)

// =============================================================================
// CACHED CLIENT
// =============================================================================

// CachedClient is a read-through caching layer over Client. Reads consult
// the cache first; a miss or expiry triggers a normal fetch whose result is
// cached. Writes invalidate the affected keys.
type CachedClient struct {
	*Client
	cache *cache.Cache
}

// NewCached wraps client with the given cache. The cache is owned by the
// caller; construct one per client context and tear it down with it.
func NewCached(client *Client, c *cache.Cache) *CachedClient {
	return &CachedClient{Client: client, cache: c}
}

// ListModels returns the model list, cached.
func (c *CachedClient) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if v, ok := c.cache.Get(keyModels); ok {
		if models, ok := v.([]model.ModelInfo); ok {
			return models, nil
		}
	}
	models, err := c.Client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyModels, models)
	return models, nil
}

// ListConversations returns the caller's conversations, cached.
func (c *CachedClient) ListConversations(ctx context.Context) ([]Conversation, error) {
	if v, ok := c.cache.Get(keyConversations); ok {
		if convs, ok := v.([]Conversation); ok {
			return convs, nil
		}
	}
	convs, err := c.Client.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyConversations, convs)
	return convs, nil
}

// GetConversation returns one conversation, cached by ID.
func (c *CachedClient) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if v, ok := c.cache.Get(keyConversation + id); ok {
		if conv, ok := v.(*Conversation); ok {
			return conv, nil
		}
	}
	conv, err := c.Client.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyConversation+id, conv)
	return conv, nil
}

// ListMessages returns a conversation's messages, cached by conversation ID.
func (c *CachedClient) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if v, ok := c.cache.Get(keyMessages + conversationID); ok {
		if msgs, ok := v.([]Message); ok {
			return msgs, nil
		}
	}
	msgs, err := c.Client.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyMessages+conversationID, msgs)
	return msgs, nil
}

// CreateConversation creates a conversation and invalidates the listing.
func (c *CachedClient) CreateConversation(ctx context.Context, title, modelID string) (*Conversation, error) {
	conv, err := c.Client.CreateConversation(ctx, title, modelID)
	if err != nil {
		return nil, err
	}
	c.cache.Delete(keyConversations)
	return conv, nil
}

// DeleteConversation removes a conversation and drops every key it touched.
func (c *CachedClient) DeleteConversation(ctx context.Context, id string) error {
	if err := c.Client.DeleteConversation(ctx, id); err != nil {
		return err
	}
	c.cache.Delete(keyConversations)
	c.cache.Delete(keyConversation + id)
	c.cache.Delete(keyMessages + id)
	return nil
}

// InvalidateConversation drops cached state for one conversation. Called
// after a completed generation appends messages server-side.
func (c *CachedClient) InvalidateConversation(id string) {
	c.cache.Delete(keyConversation + id)
	c.cache.Delete(keyMessages + id)
	c.cache.Delete(keyConversations)
}

// ClearUserData empties the cache. Wired to the identity provider's
// signed-out event so no user-scoped data survives a sign-out.
func (c *CachedClient) ClearUserData() {
	c.cache.Clear()
}

// CacheStats exposes the underlying cache statistics.
func (c *CachedClient) CacheStats() cache.Stats {
	return c.cache.Stats()
}
