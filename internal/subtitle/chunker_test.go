package subtitle

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortSegmentIsUnchanged(t *testing.T) {
	segments := []Segment{
		{Start: 1.0, End: 2.5, Text: " Hello world "},
	}

	got := SplitLongSegments(segments, 40, 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	want := Entry{Start: 1.0, End: 2.5, Text: " Hello world "}
	if got[0] != want {
		t.Errorf("expected %+v, got %+v", want, got[0])
	}
}

func TestSplitWithoutBreakPointsFallsBackToSlicing(t *testing.T) {
	maxChars := 40
	text := strings.Repeat("a", 3*maxChars)
	segments := []Segment{{Start: 4, End: 10, Text: text}}

	got := SplitLongSegments(segments, maxChars, 3)

	wantCount := int(math.Ceil(float64(len(text)) / float64(maxChars)))
	if len(got) != wantCount {
		t.Fatalf("expected %d chunks, got %d", wantCount, len(got))
	}

	var total float64
	for i, entry := range got {
		if utf8.RuneCountInString(entry.Text) != maxChars {
			t.Errorf("chunk %d: expected %d chars, got %d", i, maxChars, len(entry.Text))
		}
		if d := entry.End - entry.Start; math.Abs(d-2) > 1e-9 {
			t.Errorf("chunk %d: expected duration 2s, got %v", i, d)
		}
		total += entry.End - entry.Start
	}
	if math.Abs(total-6) > 1e-9 {
		t.Errorf("expected chunk durations to sum to 6s, got %v", total)
	}
	if got[0].Start != 4 || got[len(got)-1].End != 10 {
		t.Errorf("expected chunks to span [4, 10], got [%v, %v]", got[0].Start, got[len(got)-1].End)
	}
}

func TestSplitSlicesOversizeWordAmongOthers(t *testing.T) {
	long := strings.Repeat("b", 60)
	segments := []Segment{{Start: 0, End: 8, Text: "hi " + long}}

	got := SplitLongSegments(segments, 40, 3)

	want := []string{"hi", strings.Repeat("b", 40), strings.Repeat("b", 20)}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(got), got)
	}
	for i, entry := range got {
		if entry.Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], entry.Text)
		}
		if utf8.RuneCountInString(entry.Text) > 40 {
			t.Errorf("chunk %d exceeds max chars: %d", i, utf8.RuneCountInString(entry.Text))
		}
	}
	if got[0].Start != 0 || got[len(got)-1].End != 8 {
		t.Errorf("expected chunks to span [0, 8], got [%v, %v]", got[0].Start, got[len(got)-1].End)
	}
}

func TestSplitPacksWordsGreedily(t *testing.T) {
	segments := []Segment{{
		Start: 0,
		End:   8,
		Text:  "Hello there, this is a fairly long sentence that needs splitting.",
	}}

	got := SplitLongSegments(segments, 20, 3)

	want := []string{
		"Hello there, this is",
		"a fairly long",
		"sentence that needs",
		"splitting.",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(got), got)
	}
	for i, entry := range got {
		if entry.Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], entry.Text)
		}
		if utf8.RuneCountInString(entry.Text) > 20 {
			t.Errorf("chunk %d exceeds max chars: %q", i, entry.Text)
		}
		wantStart := float64(i) * 2
		if math.Abs(entry.Start-wantStart) > 1e-9 || math.Abs(entry.End-(wantStart+2)) > 1e-9 {
			t.Errorf("chunk %d: expected [%v, %v], got [%v, %v]", i, wantStart, wantStart+2, entry.Start, entry.End)
		}
	}
}

func TestSplitLongDurationShortText(t *testing.T) {
	segments := []Segment{{Start: 0, End: 10, Text: " Hi "}}

	got := SplitLongSegments(segments, 40, 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Text != "Hi" || got[0].Start != 0 || got[0].End != 10 {
		t.Errorf("unexpected entry %+v", got[0])
	}
}

func TestSplitEmptyTextKeepsOriginal(t *testing.T) {
	seg := Segment{Start: 2, End: 9, Text: "   "}

	got := SplitLongSegments([]Segment{seg}, 40, 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0] != Entry(seg) {
		t.Errorf("expected original segment, got %+v", got[0])
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 90)
	got := SplitLongSegments([]Segment{{Start: 0, End: 9, Text: text}}, 40, 3)

	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	wantLens := []int{40, 40, 10}
	for i, entry := range got {
		if n := utf8.RuneCountInString(entry.Text); n != wantLens[i] {
			t.Errorf("chunk %d: expected %d runes, got %d", i, wantLens[i], n)
		}
	}
}

func TestSplitPreservesOrderWithoutOverlap(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 1.2, Text: "Short one."},
		{Start: 1.5, End: 9, Text: "This segment runs on for quite a while and has to be cut into several readable captions."},
		{Start: 9.2, End: 10, Text: "Done."},
	}

	got := NewChunker(40, 3).Split(segments)
	if len(got) < 4 {
		t.Fatalf("expected the middle segment to split, got %d entries", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].End-1e-9 {
			t.Errorf("entry %d starts at %v before previous end %v", i, got[i].Start, got[i-1].End)
		}
	}
	if got[len(got)-1].Text != "Done." {
		t.Errorf("expected last entry to be the final segment, got %q", got[len(got)-1].Text)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	got := SplitLongSegments(nil, 40, 3)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(0, -1)
	if c.MaxChars != DefaultMaxChars || c.MaxDuration != DefaultMaxDuration {
		t.Errorf("expected defaults, got %+v", c)
	}
}

func TestTokenizeKeepsSeparators(t *testing.T) {
	got := tokenize("Hi, you  there")
	want := []string{"Hi", ", ", "you", "  ", "there"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, got)
	}
}
