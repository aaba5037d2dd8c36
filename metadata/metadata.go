package metadata

import (
	"fmt"
	"sort"
	"time"

	"github.com/squideyes/esignatures/value"
)

// Metadata is a set of typed values keyed by tag. The zero value is not
// usable; call New.
type Metadata struct {
	entries map[string]Value
}

// New returns an empty Metadata.
func New() *Metadata {
	return &Metadata{entries: make(map[string]Value)}
}

// IsTag reports whether s is a valid tag for the tagged form.
func IsTag(s string) bool { return value.IsDashedKey(s) }

// Set stores v under tag, replacing any previous value.
func (m *Metadata) Set(tag string, v Value) error {
	if !IsTag(tag) {
		return fmt.Errorf("metadata: tag %q: %w", tag, ErrInvalidArgument)
	}
	if err := check(v); err != nil {
		return err
	}
	m.entries[tag] = v
	return nil
}

// MustSet is like Set but panics on error. Use for hardcoded values.
func (m *Metadata) MustSet(tag string, v Value) *Metadata {
	if err := m.Set(tag, v); err != nil {
		panic(err)
	}
	return m
}

// Get returns the value stored under tag.
func (m *Metadata) Get(tag string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[tag]
	return v, ok
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Tags returns the tags in sorted order.
func (m *Metadata) Tags() []string {
	if m == nil {
		return nil
	}
	tags := make([]string, 0, len(m.entries))
	for tag := range m.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Equal reports whether m and o hold the same tags with equal values.
func (m *Metadata) Equal(o *Metadata) bool {
	if m.Len() != o.Len() {
		return false
	}
	for tag, v := range m.entriesOrNil() {
		w, ok := o.Get(tag)
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of m.
func (m *Metadata) Clone() *Metadata {
	c := New()
	for tag, v := range m.entriesOrNil() {
		c.entries[tag] = v
	}
	return c
}

func (m *Metadata) entriesOrNil() map[string]Value {
	if m == nil {
		return nil
	}
	return m.entries
}

// ──────────────────────────────────────────────────
// Typed getters
// ──────────────────────────────────────────────────

func lookup[T Value](m *Metadata, tag string) (T, error) {
	var zero T
	v, ok := m.Get(tag)
	if !ok {
		return zero, fmt.Errorf("metadata: %q: %w", tag, ErrTagNotFound)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("metadata: %q holds %s: %w", tag, v.Type(), ErrTypeMismatch)
	}
	return t, nil
}

// Bool returns the Bool stored under tag.
func (m *Metadata) Bool(tag string) (bool, error) {
	v, err := lookup[Bool](m, tag)
	return bool(v), err
}

// Int32 returns the Int32 stored under tag.
func (m *Metadata) Int32(tag string) (int32, error) {
	v, err := lookup[Int32](m, tag)
	return int32(v), err
}

// Int64 returns the Int64 stored under tag.
func (m *Metadata) Int64(tag string) (int64, error) {
	v, err := lookup[Int64](m, tag)
	return int64(v), err
}

// Float returns the Float stored under tag.
func (m *Metadata) Float(tag string) (float32, error) {
	v, err := lookup[Float](m, tag)
	return float32(v), err
}

// Double returns the Double stored under tag.
func (m *Metadata) Double(tag string) (float64, error) {
	v, err := lookup[Double](m, tag)
	return float64(v), err
}

// Text returns the String stored under tag.
func (m *Metadata) Text(tag string) (string, error) {
	v, err := lookup[String](m, tag)
	return string(v), err
}

// Date returns the Date stored under tag.
func (m *Metadata) Date(tag string) (Date, error) { return lookup[Date](m, tag) }

// DateTime returns the DateTime stored under tag.
func (m *Metadata) DateTime(tag string) (time.Time, error) {
	v, err := lookup[DateTime](m, tag)
	return v.Time, err
}

// Time returns the Time stored under tag.
func (m *Metadata) Time(tag string) (Time, error) { return lookup[Time](m, tag) }

// TimeSpan returns the TimeSpan stored under tag.
func (m *Metadata) TimeSpan(tag string) (time.Duration, error) {
	v, err := lookup[TimeSpan](m, tag)
	return time.Duration(v), err
}

// Enum returns the Enum stored under tag.
func (m *Metadata) Enum(tag string) (Enum, error) { return lookup[Enum](m, tag) }

// ShortID returns the ShortID stored under tag.
func (m *Metadata) ShortID(tag string) (ShortID, error) { return lookup[ShortID](m, tag) }
