package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/dictate/internal/transcript"
	"github.com/jwulff/dictate/internal/ui"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("DICTATE")
	return title + ui.DimStyle.Render(" — "+m.language()+" · "+m.engine())
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.state.Recording && m.state.Paused:
		dot = ui.PausedDotStyle.Render("❚❚ PAUSED")
	case m.state.Recording:
		dot = ui.RecordingDotStyle.Render("● REC")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}

	status := "  " + ui.StatusStyle.Render(m.statusText)
	if m.listening {
		status = "  " + m.spinner.View() + ui.StatusStyle.Render(m.statusText)
	}
	return dot + status
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// header, status, two dividers, error, footer
	return max(5, m.height-6)
}

func (m Model) renderMainContent() string {
	width := max(20, m.width-2)
	var lines []string

	if m.state.Recording || m.state.Current != "" {
		lines = append(lines, ui.PanelTitleStyle.Render("CURRENT TRANSCRIPT"))
		if m.state.Current == "" {
			lines = append(lines, ui.DimStyle.Render("  Waiting for speech..."))
		} else {
			for _, wl := range wrapText(strings.TrimSpace(m.state.Current), width-2) {
				lines = append(lines, "  "+ui.TranscriptTextStyle.Render(wl))
			}
		}
		lines = append(lines, "")
	} else {
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Press Space to start recording"))
		lines = append(lines, "")
	}

	if m.canSaveCurrent() {
		lines = append(lines, m.renderSavePanel()...)
		lines = append(lines, "")
	}

	if m.notice != "" {
		lines = append(lines, "  "+ui.NoticeStyle.Render(truncateToWidth(m.notice, width-2)))
		lines = append(lines, "")
	}

	if history := m.visibleHistory(); len(history) > 0 {
		lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("TRANSCRIPT HISTORY (%d)", len(m.state.History))))
		for i, text := range history {
			label := ui.SelectedStyle.Render(fmt.Sprintf("  %d ", i+1))
			lines = append(lines, label+truncateToWidth(strings.TrimSpace(text), width-4))
		}
	}

	height := m.contentHeight()
	if len(lines) > height {
		// keep the newest content in view
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSavePanel() []string {
	lines := []string{ui.PanelTitleActiveStyle.Render("SAVE TRANSCRIPT")}

	var formats []string
	for i, f := range m.formats {
		if i == m.formatIndex {
			formats = append(formats, ui.SelectedStyle.Render("["+string(f)+"]"))
		} else {
			formats = append(formats, ui.DimStyle.Render(string(f)))
		}
	}
	lines = append(lines, "  "+ui.LabelStyle.Render("Format     ")+strings.Join(formats, " "))

	ts := "off"
	if m.timestamp {
		ts = "on"
	}
	lines = append(lines, "  "+ui.LabelStyle.Render("Timestamp  ")+ts)

	dir := m.saveDir
	if m.editingDir {
		dir = m.dirInput.View()
	}
	lines = append(lines, "  "+ui.LabelStyle.Render("Directory  ")+dir)

	if m.lastSaved != "" {
		mime := transcript.MIMEType(transcript.Format(strings.TrimPrefix(filepath.Ext(m.lastSaved), ".")))
		lines = append(lines, "  "+ui.LabelStyle.Render("Last saved ")+m.lastSaved+ui.DimStyle.Render(" ("+mime+")"))
	}
	return lines
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func footerKey(key, desc string) string {
	return ui.FooterKeyStyle.Render(key) + ui.FooterDescStyle.Render(" "+desc)
}

func (m Model) renderFooter() string {
	if m.editingDir {
		return strings.Join([]string{footerKey("Enter", "Confirm"), footerKey("Esc", "Cancel")}, "  ")
	}

	var parts []string
	if m.state.Recording {
		parts = append(parts, footerKey("Space", "Stop"))
		if m.state.Paused {
			parts = append(parts, footerKey("p", "Resume"))
		} else {
			parts = append(parts, footerKey("p", "Pause"))
		}
	} else {
		parts = append(parts, footerKey("Space", "Record"))
	}
	parts = append(parts, footerKey("l", "Language"))
	parts = append(parts, footerKey("e", "Engine"))

	if m.canSaveCurrent() {
		parts = append(parts, footerKey("f", "Format"))
		parts = append(parts, footerKey("t", "Timestamp"))
		parts = append(parts, footerKey("d", "Dir"))
		parts = append(parts, footerKey("s", "Save"))
	}
	if n := len(m.visibleHistory()); n > 0 {
		parts = append(parts, footerKey(fmt.Sprintf("1-%d", n), "Save #"))
	}
	if m.lastSaved != "" {
		parts = append(parts, footerKey("c", "Copy"))
	}
	parts = append(parts, footerKey("q", "Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:max(0, width-1)]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
