package debate

import (
	"regexp"
	"strings"
	"time"
)

var (
	folderDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	folderSpaces     = regexp.MustCompile(`\s+`)
)

const folderTopicMaxLen = 50

// FolderLabel derives a collision-resistant session folder name from the
// start timestamp and a sanitized topic. The label is used only for external
// file correlation, never for addressing sessions.
func FolderLabel(topic string, startedAt time.Time) string {
	timestamp := startedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	timestamp = strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)

	cleaned := folderDisallowed.ReplaceAllString(topic, "")
	if len(cleaned) > folderTopicMaxLen {
		cleaned = cleaned[:folderTopicMaxLen]
	}
	cleaned = folderSpaces.ReplaceAllString(strings.TrimSpace(cleaned), "_")

	return timestamp + "_" + cleaned
}
