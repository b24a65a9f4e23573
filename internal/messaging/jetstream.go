package messaging

import (
	"errors"

	"github.com/nats-io/nats.go"
)

const (
	EventsStream  = "TODO_EVENTS"
	EventsSubject = "app.event.>"
)

// EnsureStreams creates the todo change-event stream if it does not exist.
func EnsureStreams(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(EventsStream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      EventsStream,
		Subjects:  []string{EventsSubject},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	return err
}
