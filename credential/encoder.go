package credential

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const recordFormatVersionCurrent = 1

// Encode serializes r into the versioned binary record layout:
// version(1) | tokenLen(2) token | userLen(4) user | issuedAt(8) | expiresAt(8).
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	if len(r.Token) > math.MaxUint16 {
		return nil, errors.New("token too long")
	}
	if uint64(len(r.User)) > math.MaxUint32 {
		return nil, errors.New("user record too large")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(r.Token) + 4 + len(r.User) + 16)

	buf.WriteByte(recordFormatVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Token))); err != nil {
		return nil, err
	}
	buf.WriteString(r.Token)

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(r.User))); err != nil {
		return nil, err
	}
	buf.Write(r.User)

	if err := binary.Write(&buf, binary.BigEndian, unixOrZero(r.IssuedAt)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, unixOrZero(r.ExpiresAt)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode. All failures wrap ErrCorrupt.
func Decode(data []byte) (*Record, error) {
	r, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return r, nil
}

func decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, fmt.Errorf("unsupported credential record version %d", version)
	}

	var tokenLen uint16
	if err := binary.Read(reader, binary.BigEndian, &tokenLen); err != nil {
		return nil, err
	}
	token := make([]byte, tokenLen)
	if _, err := io.ReadFull(reader, token); err != nil {
		return nil, err
	}

	var userLen uint32
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	if int64(userLen) > int64(reader.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}

	var issuedAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &issuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after credential record")
	}

	return &Record{
		Token:     string(token),
		User:      user,
		IssuedAt:  timeOrZero(issuedAt),
		ExpiresAt: timeOrZero(expiresAt),
	}, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
