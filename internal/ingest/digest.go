package ingest

import (
	"fmt"
	"strings"

	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/pkg/types"
)

// DigestResult is the memory_digest_session contract's output: one summary
// memory plus zero or more extracted-fact note memories.
type DigestResult struct {
	Summary memory.CreateInput
	Facts   []memory.CreateInput
}

// DigestSession implements memory_digest_session as a deterministic local
// heuristic, a stand-in for an LLM-backed digester outside this module's
// core: the summary is the transcript's first and last paragraph plus a
// count of how many lines it ran, and each blank-line-delimited paragraph
// in between becomes its own "extracted fact" note. sessionID and agent
// propagate onto every produced memory so they can be traced back to the
// conversation they came from.
func DigestSession(transcript string, sessionID, agent string) DigestResult {
	paragraphs := splitParagraphsKeepOrder(transcript)

	summaryText := buildSummaryText(paragraphs, countLines(transcript))
	summary := memory.CreateInput{
		Content:     summaryText,
		ContentType: types.ContentSummary,
		Source:      "ingest.digest",
		SessionID:   sessionID,
		Agent:       agent,
		Tags:        []string{"digest", "session-summary"},
	}

	var facts []memory.CreateInput
	if len(paragraphs) > 2 {
		for _, p := range paragraphs[1 : len(paragraphs)-1] {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			facts = append(facts, memory.CreateInput{
				Content:     p,
				ContentType: types.ContentNote,
				Source:      "ingest.digest",
				SessionID:   sessionID,
				Agent:       agent,
				Tags:        []string{"digest", "extracted-fact"},
			})
		}
	}

	return DigestResult{Summary: summary, Facts: facts}
}

func buildSummaryText(paragraphs []string, lineCount int) string {
	if len(paragraphs) == 0 {
		return fmt.Sprintf("Empty session (%d lines).", lineCount)
	}
	first := strings.TrimSpace(paragraphs[0])
	last := strings.TrimSpace(paragraphs[len(paragraphs)-1])
	if len(paragraphs) == 1 {
		return fmt.Sprintf("%s\n\n(%d lines total)", first, lineCount)
	}
	return fmt.Sprintf("%s\n\n...\n\n%s\n\n(%d lines, %d paragraphs total)", first, last, lineCount, len(paragraphs))
}

func splitParagraphsKeepOrder(text string) []string {
	raw := strings.Split(strings.TrimSpace(text), "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
