package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/ingest"
)

func TestSplitMarkdownSplitsOnH2(t *testing.T) {
	raw := "# Title\n\nsome preamble\n\n## First Section\n\nfirst body\nmore first body\n\n## Second Section\n\nsecond body\n"
	sections := ingest.SplitMarkdown(raw)
	require.Len(t, sections, 3)

	require.Equal(t, "", sections[0].Title)
	require.Equal(t, "preamble", sections[0].Slug)
	require.Contains(t, sections[0].Content, "some preamble")

	require.Equal(t, "First Section", sections[1].Title)
	require.Equal(t, "first-section", sections[1].Slug)
	require.Contains(t, sections[1].Content, "first body")

	require.Equal(t, "Second Section", sections[2].Title)
	require.Equal(t, "second-section", sections[2].Slug)
	require.Contains(t, sections[2].Content, "second body")
}

func TestSplitMarkdownNoHeadersIsOneSection(t *testing.T) {
	sections := ingest.SplitMarkdown("just plain text\nwith no headers at all")
	require.Len(t, sections, 1)
	require.Equal(t, "", sections[0].Title)
}

func TestSplitMarkdownEmptyInputIsEmpty(t *testing.T) {
	require.Empty(t, ingest.SplitMarkdown(""))
	require.Empty(t, ingest.SplitMarkdown("   \n  \n"))
}

func TestSplitMarkdownKeepsTitledEmptySection(t *testing.T) {
	raw := "## Empty\n\n## Has Content\n\nactual content here\n"
	sections := ingest.SplitMarkdown(raw)
	require.Len(t, sections, 2)
	require.Equal(t, "Empty", sections[0].Title)
	require.Empty(t, sections[0].Content)
	require.Equal(t, "Has Content", sections[1].Title)
}

func TestFileToInputsSetsSourceURIAndTags(t *testing.T) {
	raw := "## Notes\n\nsomething worth remembering\n"
	inputs := ingest.FileToInputs("/data/notes.md", raw, "project-x")
	require.Len(t, inputs, 1)
	require.Equal(t, "file:///data/notes.md#notes", inputs[0].SourceURI)
	require.Equal(t, "ingest", inputs[0].Source)
	require.Contains(t, inputs[0].Tags, "ingest")
	require.Contains(t, inputs[0].Tags, "project-x")
	require.Contains(t, inputs[0].Content, "Notes")
	require.Contains(t, inputs[0].Content, "something worth remembering")
}

func TestFileToInputsSkipsBlankSections(t *testing.T) {
	raw := "## Empty\n\n## Real\n\nreal content\n"
	inputs := ingest.FileToInputs("/data/notes.md", raw)
	require.Len(t, inputs, 1)
	require.Contains(t, inputs[0].SourceURI, "#real")
}
