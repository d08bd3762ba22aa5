package debate

import (
	"testing"
)

func TestParseReport_RoundTrip(t *testing.T) {
	session, outputs, exchanges := reportFixture()
	report := RenderReport(session, outputs, exchanges)

	messages := ParseReport(report)

	if len(messages) != len(outputs) {
		t.Fatalf("got %d messages, want %d: %+v", len(messages), len(outputs), messages)
	}
	for i, output := range outputs {
		if messages[i].Agent != output.AgentName {
			t.Errorf("message %d agent = %q, want %q", i, messages[i].Agent, output.AgentName)
		}
		if messages[i].Content != output.Content {
			t.Errorf("message %d content = %q, want %q", i, messages[i].Content, output.Content)
		}
	}
}

func TestParseReport_SkipsExchangeBanners(t *testing.T) {
	session, outputs, exchanges := reportFixture()
	report := RenderReport(session, outputs, exchanges)

	for _, message := range ParseReport(report) {
		if message.Agent == "Round 1" || message.Agent == "Question" || message.Agent == "Response" {
			t.Errorf("exchange metadata leaked as agent: %q", message.Agent)
		}
	}
}

func TestParseReport_MultilineContent(t *testing.T) {
	session, _, _ := reportFixture()
	outputs := []AgentOutput{{
		AgentName: "Pattern Synthesizer",
		Phase:     PhaseResearch,
		Content:   "First observation.\nSecond observation.\n\nConclusion: both hold.",
	}}

	messages := ParseReport(RenderReport(session, outputs, nil))

	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Content != outputs[0].Content {
		t.Errorf("content = %q, want %q", messages[0].Content, outputs[0].Content)
	}
}

func TestParseReport_MalformedInput(t *testing.T) {
	for _, text := range []string{
		"",
		"not a report at all",
		"............................................................",
		"Agent With No Content:\n",
	} {
		if messages := ParseReport(text); len(messages) != 0 {
			t.Errorf("ParseReport(%q) = %+v, want empty", text, messages)
		}
	}
}
