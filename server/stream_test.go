package server

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/boardroom-ai/boardroom/debate"
	"github.com/boardroom-ai/boardroom/stream"
)

func collectStream(t *testing.T, events <-chan stream.Event, errCh <-chan error) []stream.Event {
	t.Helper()
	var collected []stream.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				if err := <-errCh; err != nil {
					t.Fatalf("stream error: %v", err)
				}
				return collected
			}
			collected = append(collected, event)
		case <-timeout:
			t.Fatalf("stream did not end; got %d events: %+v", len(collected), collected)
		}
	}
}

func TestStream_ReplaysHistoryFirst(t *testing.T) {
	f := newServerFixture(t)
	session := f.startDebate(t, "history replay")

	for _, content := range []string{"first contribution", "second contribution"} {
		resp := f.postJSON(t, "/api/agent-outputs", callbackOutputRequest{
			SessionID: session.ID,
			AgentName: "Meta-Learning Strategist",
			Phase:     debate.PhaseResearch,
			Content:   content,
		})
		resp.Body.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errCh := f.client.Stream(ctx, session.ID)

	// End the stream by finishing the debate once the replay is in flight.
	go func() {
		time.Sleep(100 * time.Millisecond)
		f.client.Stop(context.Background(), session.ID)
	}()

	collected := collectStream(t, events, errCh)
	if len(collected) < 4 {
		t.Fatalf("got %d events, want at least 4: %+v", len(collected), collected)
	}
	if collected[0].Type != stream.TypeConnected {
		t.Errorf("first event = %s, want connected", collected[0].Type)
	}
	if collected[1].Type != stream.TypeSessionUpdate {
		t.Errorf("second event = %s, want session_update", collected[1].Type)
	}
	if collected[2].Content != "first contribution" || collected[3].Content != "second contribution" {
		t.Errorf("replayed outputs out of order: %+v", collected[2:4])
	}
	last := collected[len(collected)-1]
	if !last.Terminal() {
		t.Errorf("last event should be terminal, got %+v", last)
	}
}

func TestStream_NoDuplicateOutputs(t *testing.T) {
	f := newServerFixture(t)
	session := f.startDebate(t, "dedupe check")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errCh := f.client.Stream(ctx, session.ID)

	go func() {
		// Land an output while the stream is live, wait out several poll
		// ticks so push and poll both see it, then finish.
		time.Sleep(50 * time.Millisecond)
		resp := f.postJSON(t, "/api/agent-outputs", callbackOutputRequest{
			SessionID: session.ID,
			AgentName: "Systems Futurist",
			Phase:     debate.PhaseResearch,
			Content:   "landed once",
		})
		resp.Body.Close()
		time.Sleep(200 * time.Millisecond)
		f.client.Stop(context.Background(), session.ID)
	}()

	collected := collectStream(t, events, errCh)
	outputs := 0
	for _, event := range collected {
		if event.Type == stream.TypeAgentOutput {
			outputs++
		}
	}
	if outputs != 1 {
		t.Errorf("agent_output events = %d, want 1 (no duplicates)", outputs)
	}
}

func TestStream_UnknownSession(t *testing.T) {
	f := newServerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errCh := f.client.Stream(ctx, "missing")

	collected := collectStream(t, events, errCh)
	if len(collected) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(collected), collected)
	}
	if collected[0].Type != stream.TypeConnected || collected[1].Type != stream.TypeError {
		t.Errorf("events = %s, %s; want connected, error", collected[0].Type, collected[1].Type)
	}
}

func TestStream_TerminalSessionEndsImmediately(t *testing.T) {
	f := newServerFixture(t)
	session := f.startDebate(t, "already done")
	if _, err := f.client.Stop(context.Background(), session.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errCh := f.client.Stream(ctx, session.ID)

	collected := collectStream(t, events, errCh)
	if len(collected) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(collected), collected)
	}
	if !collected[1].Terminal() {
		t.Errorf("expected terminal session_update, got %+v", collected[1])
	}
}

// TestFullLifecycle drives a debate the way a real worker would: the start
// request spawns the worker, the worker reports through the callback API, and
// the exit handler closes the stream.
func TestFullLifecycle(t *testing.T) {
	f := newServerFixture(t)
	session := f.startDebate(t, "full run")
	proc := f.launcher.lastProc(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errCh := f.client.Stream(ctx, session.ID)

	go func() {
		resp := f.postJSON(t, "/api/agent-outputs", callbackOutputRequest{
			SessionID: session.ID,
			AgentName: "First Principles Physicist",
			Phase:     debate.PhaseResearch,
			Content:   "baseline physics review",
		})
		resp.Body.Close()

		completeReq := mustMarshal(t, callbackCompleteRequest{
			ConsensusAnalysis:  &debate.ConsensusAnalysis{ConsensusReached: true, WinningAgent: "First Principles Physicist"},
			FinalReportContent: "Proceed with staged rollout.",
		})
		putJSON(t, f.ts.URL+"/api/debates/"+session.ID+"/complete", completeReq)

		proc.exit(0)
	}()

	collected := collectStream(t, events, errCh)

	var sawOutput, sawTerminal bool
	for _, event := range collected {
		if event.Type == stream.TypeAgentOutput && event.Content == "baseline physics review" {
			sawOutput = true
		}
		if event.Terminal() {
			sawTerminal = true
			if event.Session.Status != debate.StatusCompleted {
				t.Errorf("terminal status = %s, want completed", event.Session.Status)
			}
		}
	}
	if !sawOutput {
		t.Error("stream missing the callback-reported output")
	}
	if !sawTerminal {
		t.Error("stream missing the terminal session_update")
	}

	report, err := f.client.Report(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(report, "baseline physics review") {
		t.Error("report missing recorded output")
	}
	if !strings.Contains(report, "Consensus Reached: Yes") {
		t.Error("report missing consensus line")
	}
}

func putJSON(t *testing.T, url string, payload []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT %s status = %d", url, resp.StatusCode)
	}
}
