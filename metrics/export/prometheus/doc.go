// Package prometheus renders console metrics in the Prometheus text
// exposition format.
//
// Counter names are admsession_*_total; the single histogram is
// admsession_sign_in_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate console state.
package prometheus
