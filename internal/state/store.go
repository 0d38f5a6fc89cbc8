// Package state holds the single source of truth for a configuration session.
//
// The state is a JSON document addressed by dotted paths. A write replaces only
// the subtree at its path, so sibling values survive partial updates. Writes
// are committed atomically and subscribers are notified synchronously, in
// registration order, with the snapshot of the committed write.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/match"
	"github.com/tidwall/sjson"
)

// Change describes one committed write.
type Change struct {
	Paths    []string
	Snapshot Snapshot
}

// Listener receives committed changes.
type Listener func(change Change)

type subscription struct {
	id      int
	pattern string
	fn      Listener
}

// Store keeps the state document and its subscribers.
type Store struct {
	mu          sync.Mutex
	doc         []byte
	version     uint64
	subs        []subscription
	nextID      int
	pending     []Change
	dispatching bool
}

// New creates a store seeded with initial, which must encode to a JSON object.
func New(initial any) (*Store, error) {
	raw, err := json.Marshal(initial)
	if err != nil {
		return nil, fmt.Errorf("encode initial state: %w", err)
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, ErrNotObject
	}
	return &Store{doc: raw}, nil
}

// GetState returns the current snapshot.
func (s *Store) GetState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{doc: s.doc, version: s.version}
}

// UpdateState replaces the subtree at path with value.
func (s *Store) UpdateState(path string, value any) error {
	return s.Apply(func(tx *Tx) error {
		return tx.Set(path, value)
	})
}

// DeleteState removes the subtree at path.
func (s *Store) DeleteState(path string) error {
	return s.Apply(func(tx *Tx) error {
		return tx.Delete(path)
	})
}

// Apply runs fn against a transaction and commits all of its writes as one
// change. Nothing is committed when fn returns an error.
func (s *Store) Apply(fn func(tx *Tx) error) error {
	s.mu.Lock()
	tx := &Tx{doc: s.doc}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(tx.paths) == 0 {
		s.mu.Unlock()
		return nil
	}

	s.doc = tx.doc
	s.version++
	s.pending = append(s.pending, Change{
		Paths:    tx.paths,
		Snapshot: Snapshot{doc: s.doc, version: s.version},
	})
	if s.dispatching {
		// Delivered by the dispatch loop already running further up the stack.
		s.mu.Unlock()
		return nil
	}
	s.dispatching = true
	s.mu.Unlock()

	s.dispatch()
	return nil
}

// OnStateChange registers fn for writes matching pattern and returns a function
// that removes the subscription. A trailing "*" matches everything below a
// prefix, and a write to an ancestor of the pattern also matches.
func (s *Store) OnStateChange(pattern string, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, pattern: pattern, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) dispatch() {
	defer func() {
		if rec := recover(); rec != nil {
			s.mu.Lock()
			s.pending = nil
			s.dispatching = false
			s.mu.Unlock()
			panic(rec)
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		change := s.pending[0]
		s.pending = s.pending[1:]
		subs := append([]subscription(nil), s.subs...)
		s.mu.Unlock()

		for _, sub := range subs {
			if sub.matches(change.Paths) {
				sub.fn(change)
			}
		}
	}
}

func (sub subscription) matches(paths []string) bool {
	for _, p := range paths {
		if PathMatches(sub.pattern, p) {
			return true
		}
	}
	return false
}

// PathMatches reports whether a write at path is visible to pattern.
func PathMatches(pattern, path string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if match.Match(path, pattern) {
		return true
	}
	prefix := pattern
	if i := strings.IndexAny(pattern, "*?"); i >= 0 {
		prefix = pattern[:i]
	}
	return strings.HasPrefix(prefix, path+".")
}

// Tx accumulates writes for Apply.
type Tx struct {
	doc   []byte
	paths []string
}

// Get reads a value including writes made earlier in the transaction.
func (tx *Tx) Get(path string) gjson.Result {
	return gjson.GetBytes(tx.doc, path)
}

// Decode unmarshals the value at path, including earlier writes in the transaction.
func (tx *Tx) Decode(path string, v any) error {
	return Snapshot{doc: tx.doc}.Decode(path, v)
}

// Set replaces the subtree at path. Negative and non-finite numbers are
// clamped to zero.
func (tx *Tx) Set(path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	doc, err := sjson.SetRawBytes(cloneBytes(tx.doc), path, raw)
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	tx.doc = doc
	tx.paths = append(tx.paths, path)
	return nil
}

// Delete removes the subtree at path. Deleting a missing path is a no-op.
func (tx *Tx) Delete(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if !gjson.GetBytes(tx.doc, path).Exists() {
		return nil
	}
	doc, err := sjson.DeleteBytes(cloneBytes(tx.doc), path)
	if err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	tx.doc = doc
	tx.paths = append(tx.paths, path)
	return nil
}

func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if strings.ContainsAny(path, "*?#@|") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			value = 0
		}
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			value = 0
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsRune(raw, '-') {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return json.Marshal(clampNegative(tree))
}

func clampNegative(v any) any {
	switch t := v.(type) {
	case json.Number:
		if strings.HasPrefix(t.String(), "-") {
			return json.Number("0")
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = clampNegative(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = clampNegative(e)
		}
		return t
	default:
		return v
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
