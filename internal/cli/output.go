package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imoveisdeluxo/admsession/identity"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describeUser(u *identity.User) string {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	if name == "" {
		name = "user " + string(u.ID)
	}
	if u.Email != "" && u.Email != name {
		return fmt.Sprintf("%s <%s> (%s)", name, u.Email, u.Type)
	}
	return fmt.Sprintf("%s (%s)", name, u.Type)
}

func printUser(w io.Writer, format string, prefix string, u *identity.User) error {
	if format == "json" {
		return writeJSON(w, u)
	}
	_, err := fmt.Fprintf(w, "%s%s\n", prefix, describeUser(u))
	return err
}
