package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/cropform/internal/chain"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	for i, st := range m.chain.Stages() {
		b.WriteString(m.renderStage(i, st))
		b.WriteString("\n")
		if m.picker != nil && m.picker.stage == st.Key {
			b.WriteString(m.renderPicker())
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}

	bindings := m.keys.formHelp()
	if m.picker != nil {
		bindings = m.keys.pickerHelp()
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Width(m.width).Render(renderHelp(bindings)))
	return b.String()
}

func (m Model) renderStage(i int, st chain.Stage) string {
	marker := "  "
	label := labelStyle.Render(st.DisplayLabel())
	if i == m.focus {
		marker = keyStyle.Render("> ")
		label = focusedLabelStyle.Render(st.DisplayLabel())
	}

	var value string
	switch m.chain.Status(st.Key) {
	case chain.StatusLoading:
		value = loadingStyle.Render("loading…")
	case chain.StatusFailed:
		value = failedStyle.Render("unavailable (r to retry)")
	case chain.StatusIdle:
		value = disabledStyle.Render(st.Placeholder().Label)
	default:
		value = m.renderValue(st)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, marker, label, value)
}

func (m Model) renderValue(st chain.Stage) string {
	v := m.chain.Value(st.Key)
	if v == "" {
		return placeholderStyle.Render(st.Placeholder().Label)
	}
	for _, o := range m.chain.Options(st.Key) {
		if o.Value == v {
			return valueStyle.Render(o.Label)
		}
	}
	return valueStyle.Render(v)
}

func (m Model) renderPicker() string {
	opts := m.chain.Options(m.picker.stage)
	lines := make([]string, 0, len(opts))
	for i, o := range opts {
		switch {
		case i == m.picker.cursor:
			lines = append(lines, cursorStyle.Render("› "+o.Label))
		case o.Value == "":
			lines = append(lines, placeholderStyle.Render("  "+o.Label))
		default:
			lines = append(lines, valueStyle.Render("  "+o.Label))
		}
	}
	return pickerStyle.MarginLeft(2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	switch m.statusKind {
	case statusError:
		return errorStyle.Render(m.status)
	case statusSuccess:
		return successStyle.Render(m.status)
	default:
		return infoStyle.Render(m.status)
	}
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		if h.Key == "" && h.Desc == "" {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+" "+helpStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
