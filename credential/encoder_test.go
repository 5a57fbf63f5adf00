package credential

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRecord(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	in := &Record{
		Token:     "abc",
		User:      []byte(`{"type":"adm","id":1}`),
		IssuedAt:  now,
		ExpiresAt: now.Add(DefaultTTL),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token != in.Token || !bytes.Equal(out.User, in.User) {
		t.Fatalf("pair mismatch: %+v", out)
	}
	if !out.IssuedAt.Equal(in.IssuedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("time mismatch: %+v", out)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestDecodeRejectsTruncatedAndTrailing(t *testing.T) {
	data, err := Encode(&Record{Token: "t", User: []byte(`{"type":"adm"}`)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < len(data); i++ {
		if _, err := Decode(data[:i]); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("expected ErrCorrupt for prefix %d, got %v", i, err)
		}
	}
	if _, err := Decode(append(bytes.Clone(data), 0)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for trailing byte, got %v", err)
	}
}

func TestDecodeRejectsOversizedUserLength(t *testing.T) {
	data := []byte{recordFormatVersionCurrent, 0, 1, 'x', 0xff, 0xff, 0xff, 0xff}
	if _, err := Decode(data); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestEncodeZeroTimes(t *testing.T) {
	data, err := Encode(&Record{Token: "t", User: []byte("{}")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.IssuedAt.IsZero() || !out.ExpiresAt.IsZero() {
		t.Fatalf("expected zero times, got %+v", out)
	}
}
