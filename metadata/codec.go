package metadata

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	pairDelimiter  = "|"
	fieldDelimiter = "&"
	keyDelimiter   = "="
)

// Codec converts Metadata to and from its wire string.
type Codec interface {
	Encode(m *Metadata) (string, error)
	Decode(s string) (*Metadata, error)
}

// Tagged is the Codec for the TYPE&tag&value form.
var Tagged Codec = taggedCodec{}

// Pairs is the Codec for the Key=value form. Every value must be a String.
var Pairs Codec = pairCodec{}

// Encode renders m in the tagged form with tags in sorted order.
// An empty or nil Metadata encodes to "".
func Encode(m *Metadata) (string, error) { return Tagged.Encode(m) }

// Decode parses the tagged form.
func Decode(s string) (*Metadata, error) { return Tagged.Decode(s) }

type taggedCodec struct{}

func (taggedCodec) Encode(m *Metadata) (string, error) {
	tags := m.Tags()
	chunks := make([]string, 0, len(tags))
	for _, tag := range tags {
		if !IsTag(tag) {
			return "", fmt.Errorf("metadata: tag %q: %w", tag, ErrInvalidArgument)
		}
		v := m.entries[tag]
		if err := check(v); err != nil {
			return "", err
		}
		chunks = append(chunks, string(v.Type())+fieldDelimiter+tag+fieldDelimiter+v.encode())
	}
	return strings.Join(chunks, pairDelimiter), nil
}

func (taggedCodec) Decode(s string) (*Metadata, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("metadata: empty input: %w", ErrMalformedMetadata)
	}

	m := New()
	for i, chunk := range strings.Split(s, pairDelimiter) {
		fields := strings.Split(chunk, fieldDelimiter)
		if len(fields) != 3 {
			return nil, fmt.Errorf("metadata: chunk %d has %d fields: %w", i, len(fields), ErrMalformedMetadata)
		}

		typ, tag, text := Type(fields[0]), fields[1], fields[2]
		if _, ok := knownTypes[typ]; !ok {
			return nil, fmt.Errorf("metadata: chunk %d: unknown type %q: %w", i, fields[0], ErrMalformedMetadata)
		}
		if !IsTag(tag) {
			return nil, fmt.Errorf("metadata: chunk %d: bad tag %q: %w", i, tag, ErrMalformedMetadata)
		}
		if _, dup := m.entries[tag]; dup {
			return nil, fmt.Errorf("metadata: chunk %d: duplicate tag %q: %w", i, tag, ErrMalformedMetadata)
		}

		v, err := parseValue(typ, text)
		if err != nil {
			return nil, fmt.Errorf("metadata: chunk %d: %s value %q: %v: %w", i, typ, text, err, ErrMalformedMetadata)
		}
		m.entries[tag] = v
	}
	return m, nil
}

var pairKeyPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]{0,23}$`)

// IsPairKey reports whether s is a valid key for the pair form.
func IsPairKey(s string) bool { return pairKeyPattern.MatchString(s) }

// EncodePairs renders kv in the Key=value form with keys in sorted order.
func EncodePairs(kv map[string]string) (string, error) {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := kv[k]
		if !IsPairKey(k) {
			return "", fmt.Errorf("metadata: key %q: %w", k, ErrInvalidArgument)
		}
		if strings.ContainsAny(v, pairDelimiter+keyDelimiter) {
			return "", fmt.Errorf("metadata: value for %q contains a delimiter: %w", k, ErrInvalidArgument)
		}
		pairs = append(pairs, k+keyDelimiter+v)
	}
	return strings.Join(pairs, pairDelimiter), nil
}

// DecodePairs parses the Key=value form.
func DecodePairs(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("metadata: empty input: %w", ErrMalformedMetadata)
	}

	kv := make(map[string]string)
	for i, pair := range strings.Split(s, pairDelimiter) {
		fields := strings.Split(pair, keyDelimiter)
		if len(fields) != 2 {
			return nil, fmt.Errorf("metadata: pair %d must have exactly one %q: %w", i, keyDelimiter, ErrMalformedMetadata)
		}
		k, v := fields[0], fields[1]
		if !IsPairKey(k) {
			return nil, fmt.Errorf("metadata: pair %d: bad key %q: %w", i, k, ErrMalformedMetadata)
		}
		if _, dup := kv[k]; dup {
			return nil, fmt.Errorf("metadata: pair %d: duplicate key %q: %w", i, k, ErrMalformedMetadata)
		}
		kv[k] = v
	}
	return kv, nil
}

// pairCodec adapts the pair form to Codec. Decoded entries are Strings
// keyed by the pair key.
type pairCodec struct{}

func (pairCodec) Encode(m *Metadata) (string, error) {
	kv := make(map[string]string, m.Len())
	for tag, v := range m.entriesOrNil() {
		s, ok := v.(String)
		if !ok {
			return "", fmt.Errorf("metadata: %q holds %s, pair form carries strings only: %w", tag, v.Type(), ErrInvalidArgument)
		}
		kv[tag] = string(s)
	}
	return EncodePairs(kv)
}

func (pairCodec) Decode(s string) (*Metadata, error) {
	kv, err := DecodePairs(s)
	if err != nil {
		return nil, err
	}
	m := New()
	for k, v := range kv {
		m.entries[k] = String(v)
	}
	return m, nil
}

// FromPairs builds Metadata for the pair form. Keys must satisfy IsPairKey.
func FromPairs(kv map[string]string) (*Metadata, error) {
	if _, err := EncodePairs(kv); err != nil {
		return nil, err
	}
	m := New()
	for k, v := range kv {
		m.entries[k] = String(v)
	}
	return m, nil
}
