// Package ingest turns external content — markdown files on disk, raw
// conversation transcripts — into memory.CreateInput values the write
// pipeline can take as-is. It holds no storage dependency of its own:
// Section and DigestResult are pure data, and File/Directory wire them
// into a memory.Pipeline.
package ingest

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/pkg/types"
)

// Section is one H2-delimited piece of a markdown file.
type Section struct {
	Title   string
	Slug    string
	Content string
}

// SplitMarkdown splits raw markdown on lines matching "^## ": the matched
// line's remainder becomes Title, and every line up to (not including) the
// next "## " line or EOF becomes Content. Content preceding the first "## "
// line (if any) is returned as a Section with an empty Title and slug
// "preamble", so no byte of the file is silently dropped.
func SplitMarkdown(raw string) []Section {
	type segment struct {
		title string
		lines []string
	}

	var segments []segment
	cur := segment{}
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "## ") {
			segments = append(segments, cur)
			cur = segment{title: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
			continue
		}
		cur.lines = append(cur.lines, line)
	}
	segments = append(segments, cur)

	var sections []Section
	for _, seg := range segments {
		content := strings.TrimSpace(strings.Join(seg.lines, "\n"))
		if seg.title == "" && content == "" {
			continue // no preamble and no headerless body: nothing to keep
		}
		sections = append(sections, Section{Title: seg.title, Slug: slugify(seg.title), Content: content})
	}
	return sections
}

func slugify(title string) string {
	if title == "" {
		return "preamble"
	}
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "section"
	}
	return slug
}

// FileToInputs implements the memory_ingest file-split rule: one
// CreateInput per Section with a non-empty body, tagged "ingest" plus any
// caller-supplied tags, with source "ingest" and source_uri
// "file://<path>#<slug>".
func FileToInputs(path string, raw string, extraTags ...string) []memory.CreateInput {
	sections := SplitMarkdown(raw)
	inputs := make([]memory.CreateInput, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s.Content) == "" {
			continue // a header with no body is not worth a memory
		}
		content := s.Content
		if s.Title != "" {
			content = s.Title + "\n\n" + s.Content
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		tags := append([]string{"ingest"}, extraTags...)
		inputs = append(inputs, memory.CreateInput{
			Content:     content,
			ContentType: types.ContentNote,
			Source:      "ingest",
			SourceURI:   fmt.Sprintf("file://%s#%s", path, s.Slug),
			Tags:        tags,
		})
	}
	return inputs
}

// countLines reports how many non-blank lines raw has, used for the line
// count in digest's summary text.
func countLines(raw string) int {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	n := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n
}
