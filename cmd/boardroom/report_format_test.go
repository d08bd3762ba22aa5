package main

import (
	"strings"
	"testing"
)

func TestReportToMarkdownPromotesBanners(t *testing.T) {
	report := strings.Join([]string{
		"MULTI-AGENT DEBATE REPORT",
		"================================",
		"Topic: Should cities ban cars?",
		"",
		"PHASE: RESEARCH",
		"--------------------------------",
		"Visionary Strategist:",
		"Cars are on the way out.",
		"",
		"DEBATE EXCHANGES",
		"================================",
		"Q1: why?",
	}, "\n")

	got := reportToMarkdown(report)

	if !strings.Contains(got, "# MULTI-AGENT DEBATE REPORT\n") {
		t.Errorf("missing title heading in %q", got)
	}
	if !strings.Contains(got, "## RESEARCH\n") {
		t.Errorf("missing phase heading in %q", got)
	}
	if !strings.Contains(got, "## DEBATE EXCHANGES\n") {
		t.Errorf("missing exchanges heading in %q", got)
	}
	if strings.Contains(got, "=====") || strings.Contains(got, "-----") {
		t.Errorf("rule lines survived: %q", got)
	}
	if !strings.Contains(got, "Topic: Should cities ban cars?\n") {
		t.Errorf("body line dropped: %q", got)
	}
}

func TestIsRuleLine(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"================================", true},
		{"---", true},
		{"...", true},
		{"--", false},
		{"-- a --", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isRuleLine(tc.line); got != tc.want {
			t.Errorf("isRuleLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
