// Package session holds the console's in-memory session and restores it from
// the credential store at startup.
//
// There is no package-level session. Each [State] is created by its owner
// (normally the console's Builder) and passed explicitly to everything that
// reads it, such as the route guard and the bearer transport.
//
// # Invariant
//
// A [State] holds a token and a user together or neither. [State.Set] refuses
// a partial pair; [State.Reset] clears both.
//
// # Lifecycle
//
// A State starts in [StatusLoading]. The [Loader] runs once, populates the
// State when a valid credential exists, and then marks it loaded, after which
// the status is [StatusAuthenticated] or [StatusUnauthenticated].
package session
