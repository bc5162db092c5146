// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/chatcore/internal/cache"
)

func newCachedTestClient(srv *httptest.Server) *CachedClient {
	return NewCached(newTestClient(srv), cache.New(100, time.Minute))
}

func TestCachedListConversationsHitsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":[{"id":"c-1","title":"First"}]}`))
	}))
	defer srv.Close()

	c := newCachedTestClient(srv)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		convs, err := c.ListConversations(ctx)
		if err != nil {
			t.Fatalf("ListConversations failed: %v", err)
		}
		if len(convs) != 1 {
			t.Fatalf("Unexpected conversations: %+v", convs)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 backend call, got %d", got)
	}
}

func TestCachedCreateInvalidatesListing(t *testing.T) {
	var listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Write([]byte(`{"id":"c-2","title":"New"}`))
		default:
			listCalls.Add(1)
			w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer srv.Close()

	c := newCachedTestClient(srv)
	ctx := context.Background()

	c.ListConversations(ctx)
	if _, err := c.CreateConversation(ctx, "New", "default"); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	c.ListConversations(ctx)

	if got := listCalls.Load(); got != 2 {
		t.Errorf("Expected listing refetched after create, got %d calls", got)
	}
}

func TestCachedDeleteDropsAllKeys(t *testing.T) {
	var msgCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/conversations/c-1/messages":
			msgCalls.Add(1)
			w.Write([]byte(`{"data":[{"id":"m-1","role":"user","content":"hi"}]}`))
		default:
			w.Write([]byte(`{"id":"c-1","title":"First"}`))
		}
	}))
	defer srv.Close()

	c := newCachedTestClient(srv)
	ctx := context.Background()

	c.ListMessages(ctx, "c-1")
	if err := c.DeleteConversation(ctx, "c-1"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	c.ListMessages(ctx, "c-1")

	if got := msgCalls.Load(); got != 2 {
		t.Errorf("Expected messages refetched after delete, got %d calls", got)
	}
}

func TestClearUserData(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := newCachedTestClient(srv)
	ctx := context.Background()

	c.ListConversations(ctx)
	c.ClearUserData()
	c.ListConversations(ctx)

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected refetch after ClearUserData, got %d calls", got)
	}
}

func TestCacheStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := newCachedTestClient(srv)
	ctx := context.Background()

	c.ListConversations(ctx) // miss
	c.ListConversations(ctx) // hit

	stats := c.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
