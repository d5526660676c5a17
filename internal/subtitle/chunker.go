package subtitle

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxChars    = 40
	DefaultMaxDuration = 3.0
)

// break points: punctuation with trailing spaces, or a run of whitespace
var breakPattern = regexp.MustCompile(`[.,!?;:]\s*|\s+`)

// Chunker splits transcript segments into short captions.
type Chunker struct {
	MaxChars    int
	MaxDuration float64
}

func NewChunker(maxChars int, maxDuration float64) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Chunker{MaxChars: maxChars, MaxDuration: maxDuration}
}

// SplitLongSegments is a convenience wrapper around Chunker.Split.
func SplitLongSegments(segments []Segment, maxChars int, maxDuration float64) []Entry {
	return NewChunker(maxChars, maxDuration).Split(segments)
}

// Split keeps short segments verbatim and breaks long ones into pieces of at
// most MaxChars characters. A split segment's time span is shared evenly
// between its pieces, which assumes a uniform speaking rate.
func (c *Chunker) Split(segments []Segment) []Entry {
	if len(segments) == 0 {
		return []Entry{}
	}

	entries := make([]Entry, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		duration := seg.Duration()

		if utf8.RuneCountInString(text) <= c.MaxChars && duration <= c.MaxDuration {
			entries = append(entries, Entry(seg))
			continue
		}

		chunks := c.fit(c.pack(text))
		if len(chunks) == 0 {
			entries = append(entries, Entry(seg))
			continue
		}

		step := duration / float64(len(chunks))
		for k, chunk := range chunks {
			entries = append(entries, Entry{
				Start: seg.Start + float64(k)*step,
				End:   seg.Start + float64(k+1)*step,
				Text:  chunk,
			})
		}
		// pin the last piece so the split covers the original span exactly
		entries[len(entries)-1].End = seg.End
	}

	return entries
}

// pack greedily fills lines with tokens; a token that would overflow the
// current line starts the next one.
func (c *Chunker) pack(text string) []string {
	var chunks []string
	var current strings.Builder

	for _, tok := range tokenize(text) {
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(tok) <= c.MaxChars {
			current.WriteString(tok)
			continue
		}
		if line := strings.TrimSpace(current.String()); line != "" {
			chunks = append(chunks, line)
		}
		current.Reset()
		current.WriteString(tok)
	}
	if line := strings.TrimSpace(current.String()); line != "" {
		chunks = append(chunks, line)
	}

	return chunks
}

// fit slices any line still wider than MaxChars, which only happens when a
// single token has no break point inside it.
func (c *Chunker) fit(lines []string) []string {
	fitted := make([]string, 0, len(lines))
	for _, line := range lines {
		if utf8.RuneCountInString(line) > c.MaxChars {
			fitted = append(fitted, sliceRunes(line, c.MaxChars)...)
			continue
		}
		fitted = append(fitted, line)
	}
	return fitted
}

// tokenize splits text into words and the separators that follow them,
// keeping both so packing preserves the original spacing and punctuation.
func tokenize(text string) []string {
	var tokens []string
	last := 0
	for _, loc := range breakPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			tokens = append(tokens, text[last:loc[0]])
		}
		tokens = append(tokens, text[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		tokens = append(tokens, text[last:])
	}
	return tokens
}

// sliceRunes cuts text into fixed-width pieces of size runes, trimmed.
func sliceRunes(text string, size int) []string {
	runes := []rune(text)
	var pieces []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[i:end])); piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}
