package feedback_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/BrandonDHaskell/rollcall/internal/feedback"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestPatterns_Distinct(t *testing.T) {
	signals := []feedback.Signal{
		feedback.SignalSuccess, feedback.SignalError, feedback.SignalDuplicate,
		feedback.SignalSessionStart, feedback.SignalEnrolled,
		feedback.SignalOwnerEnrolled, feedback.SignalEnrollFailed,
	}
	seen := make(map[string]feedback.Signal)
	for _, s := range signals {
		p, ok := feedback.PatternFor(s)
		if !ok {
			t.Fatalf("no pattern for %s", s)
		}
		b, _ := json.Marshal(p)
		if other, dup := seen[string(b)]; dup {
			t.Errorf("%s renders the same as %s", s, other)
		}
		seen[string(b)] = s
	}
}

func TestNoop_ImplementsSignaler(t *testing.T) {
	var _ feedback.Signaler = feedback.Noop{}
	var _ feedback.Signaler = (*feedback.NATSSignaler)(nil)
	var _ feedback.Signaler = (*feedback.Recorder)(nil)
}

func TestNATSSignaler_Publishes(t *testing.T) {
	url := startTestNATS(t)

	sig, err := feedback.NewNATSSignaler(url, "test.feedback")
	if err != nil {
		t.Fatalf("NewNATSSignaler: %v", err)
	}
	defer sig.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("test.feedback.>", ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	ev := feedback.NewEvent(feedback.SignalSessionStart)
	ev.SessionID = "CS101_20260302_100000_abc234"
	if err := sig.Signal(context.Background(), ev); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	sig.Flush()

	select {
	case msg := <-ch:
		if msg.Subject != "test.feedback.session_start" {
			t.Errorf("subject = %q", msg.Subject)
		}
		var got feedback.Event
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.SessionID != ev.SessionID || got.Pattern.Beeps != 3 || !got.Pattern.Hold {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feedback message")
	}
}
