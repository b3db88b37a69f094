package notify

import (
	"fmt"
	"io"

	"github.com/rmartins/repowatch/internal/ports"
)

// WriterSink renders alerts as single lines to a writer. The CLI uses it
// with stderr so alerts stay out of parseable stdout output.
type WriterSink struct {
	w io.Writer
}

var _ ports.AlertSink = (*WriterSink)(nil)

// NewWriterSink creates a WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Show writes the alert.
func (s *WriterSink) Show(alert ports.Alert) error {
	_, err := fmt.Fprintf(s.w, "[%s] %s: %s\n", alert.Kind, alert.Title, alert.Message)
	return err
}
