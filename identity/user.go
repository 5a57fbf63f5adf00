// Package identity models the user record returned by the listing platform API.
//
// The console does not own users. It keeps the record exactly as the API
// returned it so that persisting and restoring a session never rewrites
// fields it does not understand. Only [User.Type] drives authorization.
package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Role is the account type carried in the user's "type" field.
type Role string

const (
	RoleAdmin      Role = "adm"
	RoleAdvertiser Role = "advertiser"
	RoleUser       Role = "user"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusNew      Status = "new"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	// ErrEmptyUser is returned when a user payload is empty or null.
	ErrEmptyUser = errors.New("empty user record")
	// ErrMissingRole is returned when a user payload has no type.
	ErrMissingRole = errors.New("user record has no type")
)

// ID accepts both numeric and string identifiers on the wire.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// User is a typed view over the API's user record.
type User struct {
	ID        ID     `json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Type      Role   `json:"type"`
	Status    Status `json:"status,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	raw json.RawMessage
}

type userFields User

// Parse decodes a serialized user and validates it.
func Parse(data []byte) (*User, error) {
	u, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Decode decodes a serialized user without validating it. A record with no
// type decodes to a user whose Type is empty.
func Decode(data []byte) (*User, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyUser
	}
	u := &User{}
	if err := json.Unmarshal(trimmed, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UnmarshalJSON decodes the typed fields and keeps the original bytes.
func (u *User) UnmarshalJSON(data []byte) error {
	var f userFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*u = User(f)
	u.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON returns the record as received when it came from the API.
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return append([]byte(nil), u.raw...), nil
	}
	return json.Marshal(userFields(u))
}

// Raw returns a copy of the original serialized record, or nil when the
// user was built in code.
func (u *User) Raw() json.RawMessage {
	if u == nil || len(u.raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), u.raw...)
}

// Validate reports whether the record carries a role.
func (u *User) Validate() error {
	if u == nil {
		return ErrEmptyUser
	}
	if strings.TrimSpace(string(u.Type)) == "" {
		return ErrMissingRole
	}
	return nil
}

// HasRole reports whether the user's type is one of roles.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Type == r {
			return true
		}
	}
	return false
}
