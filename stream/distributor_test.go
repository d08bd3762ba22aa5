package stream

import (
	"testing"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
)

func collectPending(sub *Subscriber) []Event {
	var events []Event
	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestSubscribe_ReplayBeforeLive(t *testing.T) {
	d := NewDistributor(nil)
	now := time.Now()

	replay := []Event{
		SessionUpdate(debate.Session{ID: "s1", Status: debate.StatusRunning}),
		AgentOutput(debate.AgentOutput{ID: 1, SessionID: "s1", AgentName: "Systems Futurist", Content: "replayed"}),
	}
	sub := d.Subscribe("s1", replay)
	defer d.Unsubscribe(sub)

	d.Publish("s1", AgentStatus("Pattern Synthesizer", StatusResearching, now))

	events := collectPending(sub)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[0].Type != TypeConnected {
		t.Errorf("first event = %s, want connected", events[0].Type)
	}
	if events[1].Type != TypeSessionUpdate || events[2].Type != TypeAgentOutput {
		t.Errorf("replay out of order: %s, %s", events[1].Type, events[2].Type)
	}
	if events[3].Type != TypeAgentStatus {
		t.Errorf("live event = %s, want agent_status", events[3].Type)
	}
}

func TestPublish_FansOutPerSession(t *testing.T) {
	d := NewDistributor(nil)

	first := d.Subscribe("s1", nil)
	second := d.Subscribe("s1", nil)
	other := d.Subscribe("s2", nil)
	defer d.Unsubscribe(first)
	defer d.Unsubscribe(second)
	defer d.Unsubscribe(other)

	d.Publish("s1", Error("boom", time.Now()))

	for _, sub := range []*Subscriber{first, second} {
		events := collectPending(sub)
		if len(events) != 2 || events[1].Type != TypeError {
			t.Errorf("subscriber missing published event: %+v", events)
		}
	}
	if events := collectPending(other); len(events) != 1 {
		t.Errorf("other session received event: %+v", events)
	}
}

func TestPublish_DropsSlowSubscriber(t *testing.T) {
	d := NewDistributor(nil)
	sub := d.Subscribe("s1", nil)

	// Fill the buffer past capacity without draining.
	for range subscriberBuffer + 10 {
		d.Publish("s1", Error("flood", time.Now()))
	}

	if count := d.SubscriberCount("s1"); count != 0 {
		t.Errorf("slow subscriber still registered: count = %d", count)
	}

	// The channel closes after the drop; buffered events still drain.
	drained := 0
	for range sub.Events() {
		drained++
	}
	if drained == 0 {
		t.Error("expected buffered events to drain after drop")
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	d := NewDistributor(nil)
	sub := d.Subscribe("s1", nil)

	d.Unsubscribe(sub)
	d.Unsubscribe(sub)

	if count := d.SubscriberCount("s1"); count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	// The channel must be closed; drain the buffered connected event first.
	for range sub.Events() {
	}
}

func TestCloseSession_ClosesAllSubscribers(t *testing.T) {
	d := NewDistributor(nil)

	first := d.Subscribe("s1", nil)
	second := d.Subscribe("s1", nil)

	d.Publish("s1", Error("final", time.Now()))
	d.CloseSession("s1")

	for _, sub := range []*Subscriber{first, second} {
		var events []Event
		for event := range sub.Events() {
			events = append(events, event)
		}
		// connected + error, then closed.
		if len(events) != 2 {
			t.Errorf("drained %d events, want 2: %+v", len(events), events)
		}
	}
	if count := d.SubscriberCount("s1"); count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestEventTerminal(t *testing.T) {
	running := SessionUpdate(debate.Session{ID: "s1", Status: debate.StatusRunning})
	if running.Terminal() {
		t.Error("running session_update should not be terminal")
	}
	completed := SessionUpdate(debate.Session{ID: "s1", Status: debate.StatusCompleted})
	if !completed.Terminal() {
		t.Error("completed session_update should be terminal")
	}
	if Error("x", time.Now()).Terminal() {
		t.Error("error events are never terminal")
	}
}
