package content

import (
	"strings"
	"unicode"
)

// Chunk splits content into pieces of approximately targetSize characters,
// preferring to break at paragraph boundaries, then sentence boundaries,
// then plain whitespace as a last resort. Every returned chunk is
// non-empty, and the chunks concatenated with the same separators that
// split them reconstruct content modulo whitespace collapsing.
//
// Callers are expected to have already checked the length threshold that
// triggers chunking; Chunk itself has no opinion on whether it should run.
func Chunk(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = 500
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= targetSize {
		return []string{text}
	}

	paragraphs := splitParagraphs(text)
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p)+2 > targetSize {
			flush()
		}
		if len(p) > targetSize {
			// Paragraph alone exceeds target: pack its sentences, flushing
			// whenever adding the next one would overshoot.
			for _, sentence := range splitSentences(p) {
				if current.Len() > 0 && current.Len()+len(sentence) > targetSize {
					flush()
				}
				if len(sentence) > targetSize {
					for _, word := range splitWords(sentence) {
						if current.Len() > 0 && current.Len()+len(word)+1 > targetSize {
							flush()
						}
						if current.Len() > 0 {
							current.WriteByte(' ')
						}
						current.WriteString(word)
					}
					continue
				}
				if current.Len() > 0 {
					current.WriteByte(' ')
				}
				current.WriteString(sentence)
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences breaks text at '.', '!', or '?' followed by whitespace,
// keeping the terminator with its preceding sentence. Abbreviation
// detection is deliberately left out: the result is an approximation, not
// a linguistic parser, and errs toward slightly-too-few splits.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitWords(text string) []string {
	return strings.Fields(text)
}
