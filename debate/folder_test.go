package debate

import (
	"strings"
	"testing"
	"time"
)

func TestFolderLabel(t *testing.T) {
	startedAt := time.Date(2026, 3, 14, 9, 26, 53, 123_000_000, time.UTC)

	label := FolderLabel("Should we colonize Mars?", startedAt)
	want := "2026-03-14T09-26-53-123Z_Should_we_colonize_Mars"
	if label != want {
		t.Errorf("label = %q, want %q", label, want)
	}
}

func TestFolderLabel_TruncatesLongTopics(t *testing.T) {
	topic := strings.Repeat("abcde ", 20)
	label := FolderLabel(topic, time.Now())

	parts := strings.SplitN(label, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("unexpected label shape: %q", label)
	}
	if len(parts[1]) > folderTopicMaxLen {
		t.Errorf("topic part too long: %d > %d", len(parts[1]), folderTopicMaxLen)
	}
}

func TestFolderLabel_StripsSpecialCharacters(t *testing.T) {
	label := FolderLabel("AI & robots: friend/foe?", time.Now())
	for _, forbidden := range []string{"&", "/", "?", ":"} {
		suffix := label[strings.Index(label, "Z_")+1:]
		if strings.Contains(suffix, forbidden) {
			t.Errorf("label topic contains %q: %q", forbidden, label)
		}
	}
}
