// Package domain contains the best-fit resource allocation model.
package domain

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("window end must be after start")

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow creates a validated time window.
func NewWindow(start, end time.Time) (Window, error) {
	if !end.After(start) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps reports whether two windows share any instant.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
