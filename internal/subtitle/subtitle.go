package subtitle

// represents transcribed audio segment, times in seconds
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns End-Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// represents single caption unit, times in seconds
type Entry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, bool) {
	switch Format(name) {
	case FormatSRT, FormatVTT, FormatASS:
		return Format(name), true
	default:
		return "", false
	}
}

// interface for writing subtitles to files
type Writer interface {
	Write(subtitle *Subtitle, path string) error
}
