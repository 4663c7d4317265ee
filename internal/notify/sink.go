// Package notify renders slot alerts and delivers them through an
// ordered list of pluggable sinks.
package notify

import "context"

// Mode declares how a sink executes. Blocking sinks are invoked inline;
// suspending sinks run off the cycle goroutine and are awaited with a
// bounded timeout so a hung channel never stalls the next locator.
type Mode string

const (
	ModeBlocking   Mode = "blocking"
	ModeSuspending Mode = "suspending"
)

// Sink is one delivery channel. Each Deliver call succeeds or fails
// independently of every other sink.
type Sink interface {
	Name() string
	Mode() Mode

	// Template is the sink's own message template, rendered against the
	// merged locator and appointment context before delivery.
	Template() string

	Deliver(ctx context.Context, message string) error
}

// baseSink carries the fields every concrete sink shares.
type baseSink struct {
	name     string
	mode     Mode
	template string
}

func (b baseSink) Name() string     { return b.name }
func (b baseSink) Mode() Mode       { return b.mode }
func (b baseSink) Template() string { return b.template }
