package metadata_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/squideyes/esignatures/metadata"
)

func TestRoundTripEveryType(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name string
		v    metadata.Value
	}{
		{"bool-true", metadata.Bool(true)},
		{"bool-false", metadata.Bool(false)},
		{"int32-min", metadata.Int32(-2147483648)},
		{"int32-max", metadata.Int32(2147483647)},
		{"int64-min", metadata.Int64(-9223372036854775808)},
		{"int64-max", metadata.Int64(9223372036854775807)},
		{"float", metadata.Float(3.14159)},
		{"float-tiny", metadata.Float(1e-38)},
		{"double", metadata.Double(2.718281828459045)},
		{"double-big", metadata.Double(-1.7976931348623157e308)},
		{"string", metadata.String("Partner McPartner")},
		{"string-empty", metadata.String("")},
		{"date", metadata.Date{Year: 2024, Month: time.February, Day: 29}},
		{"datetime", metadata.DateTime{Time: time.Date(2024, 3, 1, 13, 14, 15, 123456789, loc)}},
		{"time", metadata.Time{Hour: 23, Minute: 59, Second: 58, Nanosecond: 1}},
		{"timespan", metadata.TimeSpan(26*time.Hour + 3*time.Minute + 4*time.Nanosecond)},
		{"timespan-negative", metadata.TimeSpan(-90 * time.Second)},
		{"enum", metadata.Enum{Name: "ContractKind", Member: "Nda"}},
		{"shortid", metadata.ShortID("ABCD2345")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metadata.New()
			if err := m.Set(tt.name, tt.v); err != nil {
				t.Fatalf("Set: %v", err)
			}

			encoded, err := metadata.Encode(m)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			decoded, err := metadata.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(%q): %v", encoded, err)
			}

			if !decoded.Equal(m) {
				got, _ := decoded.Get(tt.name)
				t.Fatalf("round trip mismatch: %q decoded to %#v, want %#v", encoded, got, tt.v)
			}
		})
	}
}

func TestEncodeFormat(t *testing.T) {
	m := metadata.New().
		MustSet("client-id", metadata.ShortID("ABCD2345")).
		MustSet("amount", metadata.Int32(42)).
		MustSet("kind", metadata.Enum{Name: "ContractKind", Member: "Nda"})

	got, err := metadata.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := "INT32&amount&42|SHORTID&client-id&ABCD2345|ENUM&kind&ContractKind.Nda"
	if got != want {
		t.Fatalf("Encode = %q, want %q", got, want)
	}
}

func TestEncodeEmpty(t *testing.T) {
	got, err := metadata.Encode(metadata.New())
	if err != nil || got != "" {
		t.Fatalf("Encode(empty) = %q, %v", got, err)
	}

	got, err = metadata.Encode(nil)
	if err != nil || got != "" {
		t.Fatalf("Encode(nil) = %q, %v", got, err)
	}
}

func TestSetRejectsDelimiters(t *testing.T) {
	for _, s := range []string{"a|b", "a&b", "|", "&&"} {
		err := metadata.New().Set("note", metadata.String(s))
		if !errors.Is(err, metadata.ErrInvalidArgument) {
			t.Errorf("Set(%q): expected ErrInvalidArgument, got %v", s, err)
		}
	}
}

func TestSetRejectsBadTags(t *testing.T) {
	for _, tag := range []string{"", "a", "-ab", "ab-", "a--b", "ClientId", "client_id"} {
		err := metadata.New().Set(tag, metadata.Bool(true))
		if !errors.Is(err, metadata.ErrInvalidArgument) {
			t.Errorf("Set(%q): expected ErrInvalidArgument, got %v", tag, err)
		}
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	tests := []metadata.Value{
		nil,
		metadata.Date{Year: 2023, Month: time.February, Day: 29},
		metadata.Time{Hour: 24},
		metadata.Enum{Name: "Kind", Member: "has.dot"},
		metadata.Enum{Name: "", Member: "Nda"},
		metadata.ShortID("ABC"),
		metadata.ShortID("ABCDEFGI"),
		metadata.Double(math.NaN()),
		metadata.Double(math.Inf(1)),
		metadata.Double(math.Inf(-1)),
		metadata.Float(float32(math.NaN())),
		metadata.Float(float32(math.Inf(1))),
	}

	for _, v := range tests {
		if err := metadata.New().Set("bad-value", v); !errors.Is(err, metadata.ErrInvalidArgument) {
			t.Errorf("Set(%#v): expected ErrInvalidArgument, got %v", v, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"STRING&tag",
		"STRING&tag&value&extra",
		"UUID&tag&value",
		"INT32&tag&notanumber",
		"INT32&tag&2147483648",
		"BOOL&tag&yes",
		"DATE&tag&2024-13-01",
		"DATETIME&tag&yesterday",
		"TIME&tag&25:00:00.000000000",
		"TIMESPAN&tag&forever",
		"ENUM&tag&NoMember",
		"SHORTID&tag&abc",
		"DOUBLE&tag&NaN",
		"DOUBLE&tag&+Inf",
		"FLOAT&tag&-Inf",
		"STRING&Bad-Tag&value",
		"STRING&tag&a|STRING&tag&b",
		"STRING&tag&a|",
	}

	for _, s := range tests {
		if _, err := metadata.Decode(s); !errors.Is(err, metadata.ErrMalformedMetadata) {
			t.Errorf("Decode(%q): expected ErrMalformedMetadata, got %v", s, err)
		}
	}
}

func TestTypedGetters(t *testing.T) {
	m := metadata.New().
		MustSet("count", metadata.Int32(7)).
		MustSet("label", metadata.String("x"))

	n, err := m.Int32("count")
	if err != nil || n != 7 {
		t.Fatalf("Int32 = %d, %v", n, err)
	}

	if _, err := m.Int64("count"); !errors.Is(err, metadata.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	if _, err := m.Text("missing"); !errors.Is(err, metadata.ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}

	if got := m.Tags(); strings.Join(got, ",") != "count,label" {
		t.Fatalf("Tags = %v", got)
	}
}

func TestPairsRoundTrip(t *testing.T) {
	kv := map[string]string{"ClientId": "ABCD2345", "ContractKind": "Nda"}

	encoded, err := metadata.EncodePairs(kv)
	if err != nil {
		t.Fatalf("EncodePairs: %v", err)
	}
	if encoded != "ClientId=ABCD2345|ContractKind=Nda" {
		t.Fatalf("EncodePairs = %q", encoded)
	}

	decoded, err := metadata.DecodePairs(encoded)
	if err != nil {
		t.Fatalf("DecodePairs: %v", err)
	}
	if len(decoded) != 2 || decoded["ClientId"] != "ABCD2345" || decoded["ContractKind"] != "Nda" {
		t.Fatalf("DecodePairs = %v", decoded)
	}
}

func TestPairsRejects(t *testing.T) {
	bad := []map[string]string{
		{"clientId": "x"},
		{"1Key": "x"},
		{"ABCDEFGHIJKLMNOPQRSTUVWXY": "x"},
		{"Key": "a|b"},
		{"Key": "a=b"},
	}
	for _, kv := range bad {
		if _, err := metadata.EncodePairs(kv); !errors.Is(err, metadata.ErrInvalidArgument) {
			t.Errorf("EncodePairs(%v): expected ErrInvalidArgument, got %v", kv, err)
		}
	}

	for _, s := range []string{"", " ", "Key", "Key=a=b", "Key=a|Key=b", "key=a"} {
		if _, err := metadata.DecodePairs(s); !errors.Is(err, metadata.ErrMalformedMetadata) {
			t.Errorf("DecodePairs(%q): expected ErrMalformedMetadata, got %v", s, err)
		}
	}
}

func TestPairsCodec(t *testing.T) {
	m, err := metadata.Pairs.Decode("ClientId=ABCD2345")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, _ := m.Text("ClientId"); got != "ABCD2345" {
		t.Fatalf("ClientId = %q", got)
	}

	if _, err := metadata.Tagged.Encode(m); !errors.Is(err, metadata.ErrInvalidArgument) {
		t.Fatalf("tagged encode of pair keys: expected ErrInvalidArgument, got %v", err)
	}

	typed := metadata.New().MustSet("count", metadata.Int32(1))
	if _, err := metadata.Pairs.Encode(typed); !errors.Is(err, metadata.ErrInvalidArgument) {
		t.Fatalf("pair encode of non-string: expected ErrInvalidArgument, got %v", err)
	}
}

func TestShortID(t *testing.T) {
	s := metadata.NewShortID()
	if len(s) != metadata.DefaultShortIDLength || !metadata.IsShortID(string(s)) {
		t.Fatalf("NewShortID = %q", s)
	}

	for _, n := range []int{4, 12} {
		s, err := metadata.NewShortIDN(n)
		if err != nil || len(s) != n {
			t.Fatalf("NewShortIDN(%d) = %q, %v", n, s, err)
		}
	}

	for _, n := range []int{3, 13} {
		if _, err := metadata.NewShortIDN(n); !errors.Is(err, metadata.ErrInvalidArgument) {
			t.Fatalf("NewShortIDN(%d): expected ErrInvalidArgument, got %v", n, err)
		}
	}

	for _, bad := range []string{"ABC0DEFG", "ABC1DEFG", "ABCIDEFG", "ABCODEFG", "abcdefgh"} {
		if _, err := metadata.ParseShortID(bad); err == nil {
			t.Errorf("ParseShortID(%q): expected error", bad)
		}
	}
}
