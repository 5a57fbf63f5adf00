package admsession

import (
	"errors"

	"github.com/imoveisdeluxo/admsession/session"
)

var (
	// ErrAuthorizationDenied is returned when the authenticated user's type is
	// not allowed into the console. Nothing is persisted.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrNetworkFailure is returned when the sign-in request could not complete
	// or the response could not be used.
	ErrNetworkFailure = errors.New("sign-in request failed")
	// ErrSignInRejected is returned when the API refused the credentials.
	ErrSignInRejected = errors.New("sign-in rejected")
	// ErrInvalidSignIn is returned when the email or password fails validation
	// before any request is made.
	ErrInvalidSignIn = errors.New("invalid sign-in input")
	// ErrSignInSuperseded is returned when a newer sign-in or a sign-out
	// started while this attempt was in flight.
	ErrSignInSuperseded = errors.New("sign-in superseded")
	// ErrCredentialPersist is returned when the credential store refused the
	// new session. The in-memory session is unchanged.
	ErrCredentialPersist = errors.New("credential persist failed")
	// ErrConsoleNotReady is returned by methods of a nil Console.
	ErrConsoleNotReady = errors.New("console not ready")
	// ErrBuilderUsed is returned when Build is called twice.
	ErrBuilderUsed = errors.New("builder already used")
)

// ErrMalformedState is reported by Console.Start when the persisted session
// could not be restored. It is the same value as session.ErrMalformedState.
var ErrMalformedState = session.ErrMalformedState
