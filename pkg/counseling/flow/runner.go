package flow

import (
	"context"
	"errors"
	"fmt"

	"ai-counseling-be/pkg/counseling"
)

// ErrRunEnded reports a reply submitted after the run reached its terminal
// event, e.g. because the run timed out or was cancelled.
var ErrRunEnded = errors.New("session run has ended")

// EventType classifies what a live session run emits to its consumer.
type EventType string

const (
	// EventPrompt carries an agent utterance awaiting the client's reply.
	EventPrompt EventType = "prompt"
	// EventDone carries the final state of a completed run.
	EventDone EventType = "done"
	// EventError carries a fatal run failure plus the last good state.
	EventError EventType = "error"
)

type Event struct {
	Type   EventType
	Output string
	State  *counseling.SessionState
	Err    error
}

// Runner bridges a live workflow run to its external client. The run
// executes in its own goroutine; every agent utterance is surfaced as an
// EventPrompt that blocks the run until SubmitReply feeds the answer in.
// It implements ClientReplier for the Controller driving the run.
type Runner struct {
	in     chan string
	events chan Event
	// done is closed when the run goroutine exits, so a SubmitReply with
	// no run left to receive it fails fast instead of blocking.
	done chan struct{}
}

func NewRunner() *Runner {
	return &Runner{
		in:     make(chan string),
		events: make(chan Event, 1),
		done:   make(chan struct{}),
	}
}

// Reply surfaces the agent's utterance and blocks until the client answers
// or the context ends.
func (r *Runner) Reply(ctx context.Context, state *counseling.SessionState, utterance string) (string, error) {
	select {
	case r.events <- Event{Type: EventPrompt, Output: utterance, State: state}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case reply := <-r.in:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Start launches the run in its own goroutine. The events channel is closed
// once the terminal event has been emitted.
func (r *Runner) Start(ctx context.Context, controller *Controller, state *counseling.SessionState) {
	go func() {
		defer close(r.events)
		final, err := controller.Run(ctx, state)
		close(r.done)
		if err != nil {
			r.events <- Event{Type: EventError, State: final, Err: err}
			return
		}
		r.events <- Event{Type: EventDone, State: final}
	}()
}

// SubmitReply feeds the client's answer to the blocked run. It returns
// ErrRunEnded when the run has already reached its terminal event.
func (r *Runner) SubmitReply(ctx context.Context, reply string) error {
	select {
	case r.in <- reply:
		return nil
	case <-r.done:
		return ErrRunEnded
	case <-ctx.Done():
		return fmt.Errorf("submit reply: %w", ctx.Err())
	}
}

// Events is the stream of prompts followed by exactly one terminal event.
func (r *Runner) Events() <-chan Event {
	return r.events
}
