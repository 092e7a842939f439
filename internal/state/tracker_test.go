package state

import (
	"reflect"
	"sync"
	"testing"
)

func TestTracker_AddIsIdempotent(t *testing.T) {
	var tr Tracker

	tr.Add(KindInstall, "lnd")
	tr.Add(KindInstall, "lnd")

	if got := tr.IDs(KindInstall); !reflect.DeepEqual(got, []string{"lnd"}) {
		t.Fatalf("IDs(install) = %v, want [lnd]", got)
	}
	if !tr.Has(KindInstall, "lnd") {
		t.Fatalf("Has(install, lnd) = false")
	}
}

func TestTracker_RemoveAbsentIsNoop(t *testing.T) {
	var tr Tracker

	tr.Remove(KindUpdate, "ghost")
	tr.Add(KindUpdate, "lnd")
	tr.Remove(KindUpdate, "ghost")

	if got := tr.IDs(KindUpdate); !reflect.DeepEqual(got, []string{"lnd"}) {
		t.Fatalf("IDs(update) = %v, want [lnd]", got)
	}
	tr.Remove(KindUpdate, "lnd")
	if tr.Has(KindUpdate, "lnd") {
		t.Fatalf("Has(update, lnd) = true after Remove")
	}
}

func TestTracker_SetsAreIndependent(t *testing.T) {
	var tr Tracker

	tr.Add(KindInstall, "a")
	tr.Add(KindUninstall, "b")
	tr.Add(KindUpdate, "c")

	snap := tr.Snapshot()
	want := TransitionSnapshot{
		Installing:   []string{"a"},
		Uninstalling: []string{"b"},
		Updating:     []string{"c"},
	}
	if !reflect.DeepEqual(snap, want) {
		t.Fatalf("Snapshot = %+v, want %+v", snap, want)
	}
	if !snap.Has(KindUninstall, "b") || snap.Has(KindInstall, "b") {
		t.Fatalf("snapshot membership wrong: %+v", snap)
	}
	if got := tr.KindsOf("c"); !reflect.DeepEqual(got, []Kind{KindUpdate}) {
		t.Fatalf("KindsOf(c) = %v, want [update]", got)
	}
}

func TestTracker_ClaimRejectsBusyID(t *testing.T) {
	var tr Tracker

	if !tr.Claim(KindInstall, "lnd") {
		t.Fatalf("first Claim failed")
	}
	if tr.Claim(KindUninstall, "lnd") {
		t.Fatalf("Claim(uninstall) succeeded while installing")
	}
	if tr.Claim(KindInstall, "lnd") {
		t.Fatalf("Claim(install) succeeded twice")
	}
	if !tr.Claim(KindUninstall, "btc") {
		t.Fatalf("Claim for another id failed")
	}
}

func TestTracker_ConcurrentMutations(t *testing.T) {
	var tr Tracker
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Add(KindInstall, "lnd")
		}()
		go func() {
			defer wg.Done()
			tr.Add(KindUpdate, "btc")
			tr.Remove(KindUpdate, "btc")
		}()
	}
	wg.Wait()

	if got := tr.IDs(KindInstall); !reflect.DeepEqual(got, []string{"lnd"}) {
		t.Fatalf("IDs(install) = %v, want [lnd]", got)
	}
	if tr.Has(KindUpdate, "btc") {
		t.Fatalf("btc left in update set")
	}
}

func TestTracker_ResetAndInvalidKind(t *testing.T) {
	var tr Tracker
	tr.Add(KindInstall, "a")
	tr.Add(Kind(42), "b")

	if tr.Has(Kind(42), "b") {
		t.Fatalf("invalid kind stored a member")
	}
	tr.Reset()
	if snap := tr.Snapshot(); len(snap.Installing) != 0 {
		t.Fatalf("Reset left members: %+v", snap)
	}
}

func TestKind_Strings(t *testing.T) {
	tests := []struct {
		kind        Kind
		name, label string
	}{
		{KindInstall, "install", "installing"},
		{KindUninstall, "uninstall", "uninstalling"},
		{KindUpdate, "update", "updating"},
		{Kind(9), "unknown", "unknown"},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.name || tt.kind.Progressive() != tt.label {
			t.Errorf("Kind(%d) = %q/%q, want %q/%q", tt.kind, tt.kind.String(), tt.kind.Progressive(), tt.name, tt.label)
		}
	}
}
