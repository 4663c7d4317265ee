package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ConsoleSink prints rendered messages to a writer, stdout by default.
type ConsoleSink struct {
	baseSink
	out io.Writer
}

func NewConsoleSink(template string, out io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSink{
		baseSink: baseSink{name: "console", mode: ModeBlocking, template: template},
		out:      out,
	}
}

func (s *ConsoleSink) Deliver(_ context.Context, message string) error {
	_, err := fmt.Fprintln(s.out, message)
	return err
}
