package main

import (
	"github.com/charmbracelet/lipgloss"

	"finassist/internal/assistant"
)

var (
	accent  = lipgloss.Color("#8BC34A")
	muted   = lipgloss.Color("#6B7280")
	warning = lipgloss.Color("#FFC107")
	info    = lipgloss.Color("#2196F3")

	replyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(muted)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(info)
	botStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	warnStyle  = lipgloss.NewStyle().Foreground(warning)
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// sourceLabel describes where a reply came from.
func sourceLabel(r *assistant.Reply) string {
	label := string(r.Source)
	if r.Provider != "" {
		label += " · " + r.Provider
	}
	style := labelStyle
	if r.Source == assistant.SourceFallback {
		style = warnStyle
	}
	return style.Render(label)
}

func renderReply(r *assistant.Reply) string {
	body := r.Text
	if r.Action != nil {
		body += "\n" + labelStyle.Render(r.Action.Summary())
	}
	return replyStyle.Render(body) + "\n" + sourceLabel(r)
}
