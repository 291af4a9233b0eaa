package logtail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF"))
	levelStyle = map[string]lipgloss.Style{
		"debug": lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		"info":  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		"warn":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// Format renders e as a single line: time, level, message and any extra
// fields in key order. Entries that were not JSON print their raw text.
func Format(e Entry, color bool) string {
	if e.Level == "" && e.Time.IsZero() && e.Fields == nil {
		return e.Raw
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(paint(timeStyle, e.Time.Local().Format("2006-01-02 15:04:05"), color))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		level := strings.ToUpper(e.Level)
		if style, ok := levelStyle[strings.ToLower(e.Level)]; ok {
			level = paint(style, level, color)
		}
		b.WriteString(level)
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(paint(fieldStyle, k+"=", color))
		fmt.Fprint(&b, e.Fields[k])
	}
	return b.String()
}

func paint(style lipgloss.Style, s string, color bool) string {
	if !color {
		return s
	}
	return style.Render(s)
}
