package fetch

import (
	"errors"
	"fmt"
)

// Class names the cause of a failed fetch
type Class string

const (
	ClassHTTP    Class = "http"    // Non-2xx response
	ClassNetwork Class = "network" // Transport failure or timeout
	ClassParse   Class = "parse"   // Body unreadable or without usable content
	ClassRobots  Class = "robots"  // Disallowed by robots.txt
)

var (
	// ErrRobotsDisallowed is wrapped by robots-class failures
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	// ErrNoTitle is wrapped when a page has no usable title
	ErrNoTitle = errors.New("no usable title")
	// ErrNoText is wrapped when a page has no usable body text
	ErrNoText = errors.New("no usable body text")
)

// Error is a classified fetch failure
type Error struct {
	Class      Class
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s fetch %s: %v", e.Class, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf returns the failure class of err, or "" when err is not a fetch error
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}
