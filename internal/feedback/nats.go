package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "rollcall.feedback"

// NATSSignaler publishes JSON events for the GPIO agent driving the lights
// and buzzer.
type NATSSignaler struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSignaler(url, subject string, opts ...nats.Option) (*NATSSignaler, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	defaults := []nats.Option{
		nats.Name("rollcall"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSignaler{conn: nc, subject: subject}, nil
}

func (s *NATSSignaler) Signal(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling feedback: %w", err)
	}
	return s.conn.Publish(s.subject+"."+string(ev.Signal), data)
}

// Flush waits until published signals reach the server.
func (s *NATSSignaler) Flush() error {
	return s.conn.Flush()
}

func (s *NATSSignaler) Close() error {
	s.conn.Close()
	return nil
}
