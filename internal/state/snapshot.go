package state

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Snapshot is an immutable view of the state document at one committed write.
type Snapshot struct {
	doc     []byte
	version uint64
}

// Version increases by one with every committed write.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Get reads the value at a dotted path.
func (s Snapshot) Get(path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(s.doc)
	}
	return gjson.GetBytes(s.doc, path)
}

// Exists reports whether a value is stored at path.
func (s Snapshot) Exists(path string) bool {
	return s.Get(path).Exists()
}

// Decode unmarshals the value at path into v. Decoded values never alias the
// snapshot.
func (s Snapshot) Decode(path string, v any) error {
	result := s.Get(path)
	if !result.Exists() {
		return fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	if err := json.Unmarshal([]byte(result.Raw), v); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}

// Bytes returns a copy of the whole document.
func (s Snapshot) Bytes() []byte {
	out := make([]byte, len(s.doc))
	copy(out, s.doc)
	return out
}

// MarshalJSON emits the document as is.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if len(s.doc) == 0 {
		return []byte("{}"), nil
	}
	return s.Bytes(), nil
}
