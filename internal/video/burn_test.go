package video

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForceStyleDefaults(t *testing.T) {
	got, err := ForceStyle(DefaultCaptionStyle())
	require.NoError(t, err)

	want := "FontName=Arial,FontSize=14,PrimaryColour=&HFFFFFF,BackColour=&H4D000000," +
		"OutlineColour=&H000000,Outline=2,Shadow=1,Alignment=2,MarginV=20"
	assert.Equal(t, want, got)
}

func TestPrimaryColour(t *testing.T) {
	assert.Equal(t, "&HFFFFFF", primaryColour("white"))
	assert.Equal(t, "&H000000", primaryColour("Black"))
	assert.Equal(t, "&H00FFFF", primaryColour(" yellow "))
	assert.Equal(t, "&HFFFFFF", primaryColour("chartreuse"))
}

func TestBackColour(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "black@0.7", want: "&H4D000000"},
		{in: "black@1", want: "&H00000000"},
		{in: "black@0", want: "&HFF000000"},
		{in: "yellow@0.5", want: "&H8000FFFF"},
		{in: "@0.7", want: "&H4D000000"},
		{in: "black", want: "&H80000000"},
		{in: "", want: "&H80000000"},
		{in: "black@abc", wantErr: true},
		{in: "black@1.5", wantErr: true},
	}

	for _, tt := range tests {
		got, err := backColour(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestForceStyleBadBackground(t *testing.T) {
	style := DefaultCaptionStyle()
	style.BackgroundColor = "black@lots"
	_, err := ForceStyle(style)
	assert.Error(t, err)
}

func TestSubtitlesFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "it's.srt")

	got, err := SubtitlesFilter(path, DefaultCaptionStyle())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "subtitles='"))
	assert.Contains(t, got, `it\'s.srt`)
	assert.Contains(t, got, ":force_style='FontName=Arial,")
	assert.NotContains(t, got, `\\`)
}

func TestSubtitlesFilterRelativePath(t *testing.T) {
	got, err := SubtitlesFilter("subs/out.srt", DefaultCaptionStyle())
	require.NoError(t, err)

	abs, err := filepath.Abs("subs/out.srt")
	require.NoError(t, err)
	assert.Contains(t, got, filepath.ToSlash(abs))
}
