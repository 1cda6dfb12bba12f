package api

import "errors"

// Sentinel errors for the mutating calls.
var (
	// ErrNetwork means no usable response was received: transport failure,
	// timeout, or an unparseable body.
	ErrNetwork = errors.New("api: network failure")
	// ErrCartRejected collapses every cart-add rejection; the storefront
	// shows a single generic toast for all of them.
	ErrCartRejected = errors.New("api: cart add rejected")
)

// Structured login rejection codes the server may return. Anything outside
// this set falls back to the generic message.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingFields      = "missing_fields"
	CodeInvalidCSRF        = "invalid_csrf"
)

// User-facing copy for the login flow.
const (
	MsgLoginFailed  = "Login failed. Please try again."
	MsgNetworkError = "Could not reach the server. Check your connection and try again."
)

// MessageForCode translates a server rejection code into user-facing copy.
func MessageForCode(code string) string {
	switch code {
	case CodeInvalidCredentials:
		return "Incorrect email or password."
	case CodeMissingFields:
		return "Please fill in both email and password."
	case CodeInvalidCSRF:
		return "Your session expired. Refresh the page and try again."
	default:
		return MsgLoginFailed
	}
}
