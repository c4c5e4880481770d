// Package events fans access decisions and command transitions out to
// interested consumers. Publishing is best effort: a failed publish is
// logged by the publisher and never reaches the caller.
package events

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type Kind string

const (
	KindAccessDecision Kind = "access.decision"
	KindCommandCreated Kind = "command.created"
	KindCommandSent    Kind = "command.sent"
	KindCommandExpired Kind = "command.expired"
	KindCommandAcked   Kind = "command.acked"
	KindDoorStatus     Kind = "door.status"
)

type Event struct {
	Kind         Kind                  `json:"kind"`
	ControllerID string                `json:"controllerId"`
	At           time.Time             `json:"at"`
	Decision     *types.Decision       `json:"decision,omitempty"`
	Command      *types.CommandSummary `json:"command,omitempty"`
	Room         *types.Room           `json:"room,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory. Test-only helper.
type Recorder struct {
	ch chan Event
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Event, size)}
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	select {
	case r.ch <- e:
	default:
	}
}

// Drain returns every event published so far.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-r.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
