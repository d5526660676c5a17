package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var srtTimestampRegex = regexp.MustCompile(
	`(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})`,
)

// ParseSRTFile reads caption entries from an SRT file.
func ParseSRTFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SRT file: %w", err)
	}
	defer file.Close()

	return ParseSRT(file)
}

// ParseSRT reads numbered SRT blocks. Block numbers are not trusted; entries
// come back in file order.
func ParseSRT(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)

	var current *Entry
	var textLines []string
	inBlock := false
	lineNum := 0

	flush := func() {
		if current != nil && len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			entries = append(entries, *current)
		}
		current = nil
		textLines = nil
		inBlock = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if !inBlock {
			if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				inBlock = true
				continue
			}
		}

		if current == nil {
			matches := srtTimestampRegex.FindStringSubmatch(line)
			if len(matches) == 9 {
				start, err := parseSRTTimestamp(matches[1:5])
				if err != nil {
					return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
				}
				end, err := parseSRTTimestamp(matches[5:9])
				if err != nil {
					return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
				}
				current = &Entry{Start: start, End: end}
				inBlock = true
				continue
			}
			if inBlock {
				return nil, fmt.Errorf("expected timestamp at line %d", lineNum)
			}
			continue
		}

		textLines = append(textLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT file: %w", err)
	}

	return entries, nil
}

// hours, minutes, seconds, millis
func parseSRTTimestamp(parts []string) (float64, error) {
	var values [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}
	totalMs := int64(values[0])*3_600_000 +
		int64(values[1])*60_000 +
		int64(values[2])*1000 +
		int64(values[3])
	return float64(totalMs) / 1000, nil
}
