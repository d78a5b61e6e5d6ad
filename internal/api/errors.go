package api

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/gitify-app/gitify-sub003/internal/credential"
)

// ErrorKind is the closed set of actionable failure classes. Every error a
// fetch or mutation can produce maps to exactly one kind.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "NETWORK"
	KindBadCredentials ErrorKind = "BAD_CREDENTIALS"
	KindMissingScopes  ErrorKind = "MISSING_SCOPES"
	KindRateLimited    ErrorKind = "RATE_LIMITED"
	KindUnknown        ErrorKind = "UNKNOWN"
)

// Title returns a short human-readable description for an error kind.
func (k ErrorKind) Title() string {
	switch k {
	case KindNetwork:
		return "Network Error"
	case KindBadCredentials:
		return "Bad Credentials"
	case KindMissingScopes:
		return "Missing Scopes"
	case KindRateLimited:
		return "Rate Limited"
	default:
		return "Oops! Something went wrong"
	}
}

// Error wraps a request failure with its classified kind and the operation
// plus account that produced it. Raw transport errors never cross the api
// package boundary unwrapped.
type Error struct {
	Kind    ErrorKind
	Op      string
	Account string
	Err     error
}

func (e *Error) Error() string {
	if e.Account != "" {
		return fmt.Sprintf("%s (%s@%s): %v", e.Kind, e.Op, e.Account, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError classifies err and attaches operation context. Returns nil for a
// nil error.
func WrapError(op, account string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Classify(err), Op: op, Account: account, Err: err}
}

// KindOf extracts the classified kind from an error produced by this package,
// classifying from scratch if the error was never wrapped.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return Classify(err)
}

// RequestError is an HTTP-level failure from a raw (non go-github) request,
// such as a GraphQL call that did not return 200.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Classify maps any error to exactly one ErrorKind. It is pure and total:
// it never panics and equivalent inputs always map identically.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	// A failed token decryption surfaces before any response exists, so it
	// takes precedence over the network check.
	if errors.Is(err, credential.ErrDecrypt) {
		return KindBadCredentials
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return KindRateLimited
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return classifyStatus(ghErr.Response.StatusCode, ghErr.Message)
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.StatusCode, reqErr.Message)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	return KindUnknown
}

func classifyStatus(status int, message string) ErrorKind {
	switch status {
	case 401:
		return KindBadCredentials
	case 403:
		if strings.Contains(message, "Missing the 'notifications' scope") {
			return KindMissingScopes
		}
		if strings.Contains(message, "API rate limit exceeded") ||
			strings.Contains(message, "secondary rate limit") {
			return KindRateLimited
		}
	case 0:
		return KindNetwork
	}
	return KindUnknown
}
