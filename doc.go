// Package admsession is the authentication and session layer of the
// Imóveis de Luxo administrative console.
//
// A [Console] is assembled with a [Builder]. [Console.Start] restores the
// persisted session once, [Console.SignIn] exchanges credentials with the
// platform API and keeps the session only for administrators, and
// [Console.SignOut] forgets it. Outbound requests made through
// [Console.HTTPClient] carry the session's bearer token at the moment they
// are sent.
//
// # Architecture boundaries
//
// The root package composes the sub-packages: credential (durable storage),
// session (in-memory state and bootstrap), authapi (the sign-in endpoint),
// transport (outbound HTTP), graphql and guard. Sub-packages never import
// the root package.
//
// # What this package must NOT do
//
//   - Verify token signatures. The API owns its tokens.
//   - Keep more than one session per Console.
//   - Log passwords or tokens.
package admsession
