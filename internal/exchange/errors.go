package exchange

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransient covers failures worth retrying on the next tick: network, rate limits, 5xx, bad payloads.
	ErrTransient = errors.New("transient exchange error")
	// ErrFatal covers failures that will not heal by waiting, such as rejected credentials.
	ErrFatal = errors.New("fatal exchange error")
)

// APIError is a non-200 reply from the venue.
type APIError struct {
	Status int `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("status %d code %d: %s", e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Msg)
}

// IsTransient reports whether err should be retried on the next tick.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsFatal reports whether err needs operator attention.
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }

func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

func classify(op string, apiErr *APIError) error {
	switch {
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, ErrFatal, apiErr)
	case apiErr.Code == -2014 || apiErr.Code == -2015 || apiErr.Code == -1022:
		// bad key format, rejected key/IP/permissions, bad signature
		return fmt.Errorf("%s: %w: %w", op, ErrFatal, apiErr)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, apiErr)
	}
}
