// Package transport builds the outbound HTTP stack of the console.
//
// Every request leaving the console goes through a chain of round trippers.
// [Bearer] reads the current session token when the request is sent, so a
// client built before sign-in starts authenticating as soon as a session
// exists and stops after sign-out.
package transport

import "net/http"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Constructor wraps a round tripper.
type Constructor func(http.RoundTripper) http.RoundTripper

// Chain is an immutable list of Constructors.
type Chain struct {
	constructors []Constructor
}

// NewChain memorizes constructors; they are only called by Then.
func NewChain(constructors ...Constructor) Chain {
	return Chain{append([]Constructor(nil), constructors...)}
}

// Then wraps base so that NewChain(m1, m2).Then(base) is m1(m2(base)).
// A nil base means http.DefaultTransport.
func (c Chain) Then(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(c.constructors) - 1; i >= 0; i-- {
		base = c.constructors[i](base)
	}
	return base
}

// Append returns a new chain with constructors added after the existing ones.
func (c Chain) Append(constructors ...Constructor) Chain {
	out := make([]Constructor, 0, len(c.constructors)+len(constructors))
	out = append(out, c.constructors...)
	out = append(out, constructors...)
	return Chain{out}
}

// Client returns an http.Client whose transport is c.Then(base).
func (c Chain) Client(base http.RoundTripper) *http.Client {
	return &http.Client{Transport: c.Then(base)}
}
