package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Query selects the entries Tail returns.
type Query struct {
	// Lines is the number of newest matching entries to keep. Zero or less
	// keeps every match.
	Lines int
	// MinLevel drops entries below this zap level ("debug", "warn", ...).
	MinLevel string
	// Logger keeps entries whose logger name starts with this prefix.
	Logger string
}

type matcher struct {
	minLevel zapcore.Level
	byLevel  bool
	logger   string
}

func (q Query) matcher() (matcher, error) {
	m := matcher{logger: q.Logger}
	if q.MinLevel != "" {
		lvl, err := zapcore.ParseLevel(q.MinLevel)
		if err != nil {
			return matcher{}, fmt.Errorf("invalid level %q: %w", q.MinLevel, err)
		}
		m.minLevel, m.byLevel = lvl, true
	}
	return m, nil
}

// match reports whether e passes the query. Lines that are not zap entries
// only pass an unfiltered query.
func (m matcher) match(e Entry) bool {
	if !m.byLevel && m.logger == "" {
		return true
	}
	if e.Raw != "" {
		return false
	}
	if m.byLevel {
		lvl, err := zapcore.ParseLevel(strings.ToLower(e.Level))
		if err != nil || lvl < m.minLevel {
			return false
		}
	}
	return strings.HasPrefix(e.Logger, m.logger)
}

// Tail scans the log at path once and returns the newest entries matching q,
// oldest first. A missing file yields no entries.
func Tail(path string, q Query) ([]Entry, error) {
	m, err := q.matcher()
	if err != nil {
		return nil, err
	}

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

	var entries []Entry
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		e := Parse(scanner.Text())
		if !m.match(e) {
			continue
		}
		entries = append(entries, e)
		// Compact once the buffer holds twice the window.
		if q.Lines > 0 && len(entries) >= 2*q.Lines {
			entries = append(entries[:0], entries[len(entries)-q.Lines:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if q.Lines > 0 && len(entries) > q.Lines {
		entries = entries[len(entries)-q.Lines:]
	}
	return entries, nil
}
