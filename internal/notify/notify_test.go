// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	n := New()

	var first, second []Notification
	n.Subscribe(func(nt Notification) { first = append(first, nt) })
	n.Subscribe(func(nt Notification) { second = append(second, nt) })

	n.Info("one")
	n.Error("two")

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("Expected both subscribers to see 2 notifications, got %d and %d", len(first), len(second))
	}
	if first[0].Message != "one" || first[1].Message != "two" {
		t.Errorf("Delivery out of order: %+v", first)
	}
}

func TestSeverityDurations(t *testing.T) {
	n := New()

	tests := []struct {
		name  string
		nt    Notification
		level Level
		want  string
	}{
		{"info", n.Info("i"), LevelInfo, DefaultDuration.String()},
		{"success", n.Success("s"), LevelSuccess, DefaultDuration.String()},
		{"warning", n.Warning("w"), LevelWarning, WarningDuration.String()},
		{"error", n.Error("e"), LevelError, ErrorDuration.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.nt.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, tt.nt.Level)
			}
			if tt.nt.Duration.String() != tt.want {
				t.Errorf("Expected duration %s, got %s", tt.want, tt.nt.Duration)
			}
			if tt.nt.ID == "" {
				t.Error("Expected generated ID")
			}
		})
	}
}

func TestPublishWithoutSubscribersIsSafe(t *testing.T) {
	n := New()
	nt := n.Warning("nobody listening")
	if nt.Message != "nobody listening" {
		t.Errorf("Unexpected notification: %+v", nt)
	}
}
