package state

import (
	"sort"
	"sync"
)

// Kind names a transition.
type Kind int

const (
	KindInstall Kind = iota
	KindUninstall
	KindUpdate
)

// Kinds lists every transition kind.
var Kinds = []Kind{KindInstall, KindUninstall, KindUpdate}

func (k Kind) String() string {
	switch k {
	case KindInstall:
		return "install"
	case KindUninstall:
		return "uninstall"
	case KindUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Progressive returns the label used while the transition is running.
func (k Kind) Progressive() string {
	switch k {
	case KindInstall:
		return "installing"
	case KindUninstall:
		return "uninstalling"
	case KindUpdate:
		return "updating"
	default:
		return "unknown"
	}
}

func (k Kind) valid() bool {
	return k >= KindInstall && k <= KindUpdate
}

// TransitionSnapshot holds sorted copies of the three transition sets.
type TransitionSnapshot struct {
	Installing   []string
	Uninstalling []string
	Updating     []string
}

// Has reports whether id is in the set for kind.
func (s TransitionSnapshot) Has(kind Kind, id string) bool {
	var ids []string
	switch kind {
	case KindInstall:
		ids = s.Installing
	case KindUninstall:
		ids = s.Uninstalling
	case KindUpdate:
		ids = s.Updating
	}
	i := sort.SearchStrings(ids, id)
	return i < len(ids) && ids[i] == id
}

// Tracker records which applications are installing, uninstalling or
// updating. Membership is the only state. The zero value is ready to use.
type Tracker struct {
	mu   sync.RWMutex
	sets [3]map[string]struct{}
}

// Add inserts id into the set for kind. Adding a member again is a no-op.
func (t *Tracker) Add(kind Kind, id string) {
	if !kind.valid() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(kind)[id] = struct{}{}
}

// Claim adds id to the set for kind only when id is in no set at all. It
// reports whether the claim succeeded.
func (t *Tracker) Claim(kind Kind, id string) bool {
	if !kind.valid() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range Kinds {
		if _, ok := t.sets[k][id]; ok {
			return false
		}
	}
	t.set(kind)[id] = struct{}{}
	return true
}

// Remove deletes id from the set for kind. Removing a non-member is a no-op.
func (t *Tracker) Remove(kind Kind, id string) {
	if !kind.valid() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sets[kind], id)
}

// Has reports whether id is in the set for kind.
func (t *Tracker) Has(kind Kind, id string) bool {
	if !kind.valid() {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.sets[kind][id]
	return ok
}

// KindsOf returns every set id belongs to.
func (t *Tracker) KindsOf(id string) []Kind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var kinds []Kind
	for _, k := range Kinds {
		if _, ok := t.sets[k][id]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// IDs returns the members of the set for kind, sorted.
func (t *Tracker) IDs(kind Kind) []string {
	if !kind.valid() {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.sets[kind])
}

// Snapshot copies all three sets.
func (t *Tracker) Snapshot() TransitionSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TransitionSnapshot{
		Installing:   sortedKeys(t.sets[KindInstall]),
		Uninstalling: sortedKeys(t.sets[KindUninstall]),
		Updating:     sortedKeys(t.sets[KindUpdate]),
	}
}

// Reset empties every set.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets = [3]map[string]struct{}{}
}

// set must be called with mu held for writing.
func (t *Tracker) set(kind Kind) map[string]struct{} {
	if t.sets[kind] == nil {
		t.sets[kind] = make(map[string]struct{})
	}
	return t.sets[kind]
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
