package models

import (
	"fmt"
)

// FetchError is returned when the page cannot be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is returned when the code table cannot be located on the page.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return "parse page: " + e.Reason
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// StoreCorruptError is returned when persisted state exists but cannot be decoded.
type StoreCorruptError struct {
	Location string
	Err      error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("known set at %s is corrupt: %v", e.Location, e.Err)
}

func (e *StoreCorruptError) Unwrap() error { return e.Err }

// StoreWriteError is returned when the known set cannot be persisted.
type StoreWriteError struct {
	Location string
	Err      error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to write known set to %s: %v", e.Location, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// NotificationError is returned when a notification transport fails.
type NotificationError struct {
	Transport string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification failed: %v", e.Transport, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
