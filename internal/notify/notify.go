package notify

import (
	"context"
	"fmt"
	"io"
)

// Notifier delivers a rendered report
type Notifier interface {
	Deliver(ctx context.Context, message string) error
}

// DeliveryError represents a failed delivery to the chat service
type DeliveryError struct {
	Destination string
	StatusCode  int // 0 when no response was received
	Cause       error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery to %s failed (HTTP %d): %v", e.Destination, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("delivery to %s failed: %v", e.Destination, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Stdout prints the report instead of sending it
type Stdout struct {
	w io.Writer
}

// Verify that Stdout implements Notifier
var _ Notifier = (*Stdout)(nil)

// NewStdout creates a notifier writing to w
func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: w}
}

// Deliver writes the message followed by a newline
func (s *Stdout) Deliver(ctx context.Context, message string) error {
	if _, err := fmt.Fprintln(s.w, message); err != nil {
		return fmt.Errorf("failed to print message: %w", err)
	}
	return nil
}
