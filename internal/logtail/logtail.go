package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

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
	count := 0
	idx := 0
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

// Entry is one decoded log line.
type Entry struct {
	Time      time.Time
	Level     zerolog.Level
	Component string
	Message   string
	Error     string
	// Fields holds the remaining key=value pairs, sorted by key.
	Fields []string
	// Raw is set when the line was not a JSON object; Message then holds the
	// line verbatim.
	Raw bool
}

// Parse decodes a JSON log line written by zerolog.
func Parse(line string) Entry {
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return Entry{Message: line, Level: zerolog.NoLevel, Raw: true}
	}

	e := Entry{Level: zerolog.NoLevel}
	if v, ok := obj[zerolog.TimestampFieldName].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339, v)
	}
	if v, ok := obj[zerolog.LevelFieldName].(string); ok {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			e.Level = lvl
		}
	}
	e.Message, _ = obj[zerolog.MessageFieldName].(string)
	e.Error, _ = obj[zerolog.ErrorFieldName].(string)
	e.Component, _ = obj["component"].(string)

	for _, key := range []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		zerolog.MessageFieldName,
		zerolog.ErrorFieldName,
		"component",
	} {
		delete(obj, key)
	}
	for key, value := range obj {
		e.Fields = append(e.Fields, fmt.Sprintf("%s=%v", key, value))
	}
	sort.Strings(e.Fields)
	return e
}

// ReadEntries returns the last maxLines log lines at or above min, decoded.
// Lines are filtered after tailing so fewer than maxLines may come back.
func ReadEntries(path string, maxLines int, min zerolog.Level) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if !e.Raw && e.Level != zerolog.NoLevel && e.Level < min {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Format renders an entry as a single plain-text line.
func (e Entry) Format() string {
	if e.Raw {
		return e.Message
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	level := strings.ToUpper(e.Level.String())
	if e.Level == zerolog.NoLevel {
		level = "-"
	}
	fmt.Fprintf(&b, "%-5s", level)
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Error != "" {
		b.WriteString(": ")
		b.WriteString(e.Error)
	}
	if len(e.Fields) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(e.Fields, " "))
	}
	return b.String()
}
