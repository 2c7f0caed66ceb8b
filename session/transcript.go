package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ============================================================================
// CONVERSATION TRANSCRIPT
// ============================================================================

const (
	transcriptTitle    = "# AI 대화 기록\n\n"
	transcriptTimeline = "**생성일시**: %s\n\n"
	transcriptRule     = "---\n\n"
	timestampLayout    = "2006-01-02 15:04:05"

	userSpeaker = "사용자"
	aiSpeaker   = "AI"
)

type transcriptEntry struct {
	speaker string
	text    string
}

// Transcript accumulates one session's exchanges for export as a
// Markdown document.
type Transcript struct {
	entries []transcriptEntry

	now func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// AddUser records one user utterance.
func (t *Transcript) AddUser(text string) {
	t.entries = append(t.entries, transcriptEntry{speaker: userSpeaker, text: text})
}

// AddAssistant records one assistant answer.
func (t *Transcript) AddAssistant(text string) {
	t.entries = append(t.entries, transcriptEntry{speaker: aiSpeaker, text: text})
}

// Empty reports whether nothing has been recorded yet.
func (t *Transcript) Empty() bool { return len(t.entries) == 0 }

// Render produces the Markdown document: title, creation timestamp, a
// rule, then the exchanges in order.
func (t *Transcript) Render() string {
	var b strings.Builder
	b.WriteString(transcriptTitle)
	fmt.Fprintf(&b, transcriptTimeline, t.now().Format(timestampLayout))
	b.WriteString(transcriptRule)
	for _, e := range t.entries {
		fmt.Fprintf(&b, "**%s**: %s\n\n", e.speaker, e.text)
	}
	return b.String()
}

// Save writes the rendered transcript to path, appending ".md" when the
// extension is missing, and returns the path actually written.
func (t *Transcript) Save(path string) (string, error) {
	if !strings.HasSuffix(path, ".md") {
		path += ".md"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating transcript directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(t.Render()), 0o644); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}
