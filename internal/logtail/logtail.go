package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]any
	Raw     string
}

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Parse decodes a JSON log line. Lines that are not JSON objects come back
// as a bare entry carrying only Raw and Message.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Message: strings.TrimSpace(line)}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return entry
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return entry
	}

	if v, ok := fields["message"].(string); ok {
		entry.Message = v
		delete(fields, "message")
	} else {
		entry.Message = ""
	}
	if v, ok := fields["level"].(string); ok {
		entry.Level = v
		delete(fields, "level")
	}
	if v, ok := fields["time"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			entry.Time = ts
			delete(fields, "time")
		}
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry
}

// Filter keeps entries at or above minLevel. An empty minLevel keeps all;
// entries without a level are always kept.
func Filter(entries []Entry, minLevel string) []Entry {
	floor := levelRank(minLevel)
	if floor < 0 {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Level == "" || levelRank(e.Level) >= floor {
			out = append(out, e)
		}
	}
	return out
}

// Tail reads and parses the last maxLines lines of path.
func Tail(path string, maxLines int, minLevel string) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return Filter(entries, minLevel), nil
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return 0
	case "debug":
		return 1
	case "info":
		return 2
	case "warn", "warning":
		return 3
	case "error":
		return 4
	case "fatal", "panic":
		return 5
	default:
		return -1
	}
}
