// Package guard gates HTTP handlers on the console's session status.
//
// A guarded handler renders a placeholder while the session is still being
// restored, and for every path except the public one while nobody is signed
// in. It is a presentation gate: the API still authorizes every request on
// its own.
//
// # What this package must NOT do
//
//   - Read or write the credential store.
//   - Redirect. Navigation is the embedding application's choice.
package guard
