package watchlist

import (
	"reflect"
	"testing"
)

func TestWithUser_Idempotent(t *testing.T) {
	cfg := WatchConfig{WatchedUsers: []string{"U1"}}

	same, added := cfg.WithUser("U1")
	if added {
		t.Error("adding an existing user should report false")
	}
	if len(same.WatchedUsers) != 1 {
		t.Errorf("expected size 1, got %d", len(same.WatchedUsers))
	}

	next, added := cfg.WithUser("U2")
	if !added {
		t.Error("adding a new user should report true")
	}
	if !reflect.DeepEqual(next.WatchedUsers, []string{"U1", "U2"}) {
		t.Errorf("unexpected users %v", next.WatchedUsers)
	}
	if len(cfg.WatchedUsers) != 1 {
		t.Error("original snapshot was mutated")
	}
}

func TestWithoutUser(t *testing.T) {
	cfg := WatchConfig{WatchedUsers: []string{"U1", "U2"}}

	next, removed := cfg.WithoutUser("U1")
	if !removed || !reflect.DeepEqual(next.WatchedUsers, []string{"U2"}) {
		t.Errorf("remove U1: removed=%v users=%v", removed, next.WatchedUsers)
	}
	if !reflect.DeepEqual(cfg.WatchedUsers, []string{"U1", "U2"}) {
		t.Error("original snapshot was mutated")
	}

	same, removed := cfg.WithoutUser("U9")
	if removed || !reflect.DeepEqual(same.WatchedUsers, cfg.WatchedUsers) {
		t.Errorf("removing an absent user should be a no-op, got removed=%v users=%v", removed, same.WatchedUsers)
	}
}

func TestWithTargetAndLog(t *testing.T) {
	cfg := Default().WithTarget("T").WithLog("L")
	if cfg.TargetChannelID != "T" || cfg.LogChannelID != "L" {
		t.Errorf("unexpected channels %+v", cfg)
	}
}
