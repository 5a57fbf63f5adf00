// Package credential persists the console's bearer token and serialized user
// across process restarts.
//
// # Contract
//
// A [Store] holds at most one credential pair. Save writes both values with
// the store's TTL; Load returns both or [ErrNotFound]; Clear removes both and
// never fails because the pair is already gone. A pair where only one half is
// present is reported as [ErrNotFound] and the orphan is removed, so callers
// never observe a token without its user or the reverse.
//
// # Backends
//
//   - [RedisStore] keeps the token and user under two keys written in one
//     transaction and lets Redis expire them.
//   - [FileStore] keeps one binary record per profile, written atomically and
//     optionally sealed with XChaCha20-Poly1305. It enforces expiry on read.
//   - [MemoryStore] keeps the record in process, mostly for tests.
//
// # What this package must NOT do
//
//   - Interpret the user record or the token (see identity and token).
//   - Hold session state in memory beyond what a backend needs.
package credential
