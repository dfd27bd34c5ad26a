package logtail

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"
)

// Entry is one decoded log line.
type Entry struct {
	Time    string
	Level   string
	Logger  string
	Message string
	Fields  []Field
	// Raw is set when the line is not a JSON object.
	Raw string
}

// Field is an extra key/value pair in document order.
type Field struct {
	Key   string
	Value string
}

var reservedKeys = map[string]bool{
	"ts": true, "level": true, "logger": true, "msg": true,
	"caller": true, "stacktrace": true,
}

// Parse decodes a zap JSON line. Anything else is kept verbatim in Raw.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	if !gjson.Valid(trimmed) {
		return Entry{Raw: line}
	}
	doc := gjson.Parse(trimmed)
	if !doc.IsObject() {
		return Entry{Raw: line}
	}
	e := Entry{
		Time:    doc.Get("ts").String(),
		Level:   strings.ToUpper(doc.Get("level").String()),
		Logger:  doc.Get("logger").String(),
		Message: doc.Get("msg").String(),
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		if !reservedKeys[key.String()] {
			e.Fields = append(e.Fields, Field{Key: key.String(), Value: value.String()})
		}
		return true
	})
	return e
}

// String renders the entry as plain text.
func (e Entry) String() string {
	return e.render(plainStyles)
}

type styles struct {
	time, logger, key lipgloss.Style
	level             func(string) lipgloss.Style
}

var plainStyles = styles{
	time:   lipgloss.NewStyle(),
	logger: lipgloss.NewStyle(),
	key:    lipgloss.NewStyle(),
	level:  func(string) lipgloss.Style { return lipgloss.NewStyle() },
}

var colorStyles = styles{
	time:   lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
	logger: lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF")),
	key:    lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	level: func(level string) lipgloss.Style {
		base := lipgloss.NewStyle().Bold(true)
		switch level {
		case "ERROR", "DPANIC", "PANIC", "FATAL":
			return base.Foreground(lipgloss.Color("#FF6B6B"))
		case "WARN":
			return base.Foreground(lipgloss.Color("#FFD700"))
		case "DEBUG":
			return base.Foreground(lipgloss.Color("#87CEEB"))
		default:
			return base.Foreground(lipgloss.Color("#5FD75F"))
		}
	},
}

func (e Entry) render(st styles) string {
	if e.Raw != "" || (e.Message == "" && e.Level == "") {
		return e.Raw
	}
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(st.time.Render(e.Time))
		b.WriteByte(' ')
	}
	b.WriteString(st.level(e.Level).Render(e.Level))
	if e.Logger != "" {
		b.WriteString(" ")
		b.WriteString(st.logger.Render("[" + e.Logger + "]"))
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	for _, f := range e.Fields {
		b.WriteString(" ")
		b.WriteString(st.key.Render(f.Key + "="))
		b.WriteString(f.Value)
	}
	return b.String()
}

// Format renders entries for a terminal. color enables lipgloss styling of
// the timestamp, level and logger name.
func Format(entries []Entry, color bool) []string {
	st := plainStyles
	if color {
		st = colorStyles
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.render(st)
	}
	return out
}
