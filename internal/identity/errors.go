package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrAuthentication covers bad credentials, duplicate accounts, weak
	// passwords and other rejections of the user's request. Never retried.
	ErrAuthentication = errors.New("authentication failed")
	// ErrRateLimited is the provider refusing further attempts for a while.
	ErrRateLimited = errors.New("too many attempts, try again later")
	// ErrNetwork covers transport failures and transient provider errors
	// that outlived the retry policy.
	ErrNetwork = errors.New("identity provider unreachable")
	ErrTimeout = errors.New("identity provider timed out")
	// ErrMalformedResponse is a success status with a body that could not be
	// decoded or lacked required fields.
	ErrMalformedResponse = errors.New("malformed identity provider response")
	// ErrProvider is any other provider error.
	ErrProvider = errors.New("identity provider error")
)

// ProviderError is an error status returned by the identity provider. Code is
// the provider's machine-readable code (for example EMAIL_EXISTS) and Message
// any human-readable detail that came with it.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "identity provider error %d", e.Status)
	if e.Code != "" {
		b.WriteString(": " + e.Code)
	}
	if e.Message != "" && e.Message != e.Code {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// Unwrap maps the error onto the package sentinels so callers can use
// errors.Is without inspecting status codes.
func (e *ProviderError) Unwrap() error {
	if e.Code == "TOO_MANY_ATTEMPTS_TRY_LATER" {
		return ErrRateLimited
	}
	switch {
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrAuthentication
	case transientStatus(e.Status):
		return ErrNetwork
	}
	return ErrProvider
}

// Friendly returns the text a user should see. Well-known codes get a fixed
// sentence; anything else falls back to the provider's detail, code or status.
func (e *ProviderError) Friendly() string {
	if msg, ok := friendlyCodes[e.Code]; ok {
		return msg
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.Status)
}

var friendlyCodes = map[string]string{
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"EMAIL_NOT_FOUND":             "No account exists for this email.",
	"INVALID_PASSWORD":            "Incorrect password.",
	"INVALID_LOGIN_CREDENTIALS":   "Incorrect email or password.",
	"INVALID_EMAIL":               "The email address is not valid.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Try again later.",
	"INVALID_ID_TOKEN":            "Your session has expired. Log in again.",
	"TOKEN_EXPIRED":               "Your session has expired. Log in again.",
	"INVALID_REFRESH_TOKEN":       "Your session has expired. Log in again.",
}

// transportError is a request that never produced a response.
type transportError struct {
	kind error
	err  error
}

func (e *transportError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *transportError) Is(target error) bool { return target == e.kind }
func (e *transportError) Unwrap() error        { return e.err }

// Message reduces any error from this package to a line suitable for a UI.
func Message(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Friendly()
	case errors.Is(err, ErrTimeout):
		return "The identity provider timed out. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the identity provider. Check your connection and try again."
	case errors.Is(err, ErrMalformedResponse):
		return "The identity provider sent an unexpected response."
	}
	return err.Error()
}
