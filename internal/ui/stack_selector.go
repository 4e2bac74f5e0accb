package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vietdv277/nimbus/internal/config"
)

// stackItem holds display data for a single stack entry.
type stackItem struct {
	name    string
	entry   *config.StackEntry
	current bool
}

// StackModel is the bubbletea model for interactive stack selection.
type StackModel struct {
	items        []stackItem
	filtered     []stackItem
	cursor       int
	offset       int
	search       string
	selected     string
	quitting     bool
	cancelled    bool
	termWidth    int
	contentWidth int
	colWidths    []int // [Name, Profile, Region]
}

func newStackModel(items []stackItem) StackModel {
	m := StackModel{
		items:     items,
		filtered:  items,
		termWidth: 80,
	}
	m.calculateWidths()
	return m
}

func (m *StackModel) calculateWidths() {
	m.contentWidth = min(max(m.termWidth-2, minWidth), maxWidth)

	profW, regW := 10, 10
	for _, item := range m.items {
		profW = max(profW, runewidth.StringWidth(item.entry.Profile))
		regW = max(regW, runewidth.StringWidth(item.entry.Region))
	}

	// cursor+marker(3) + name + sp(2) + profile + sp(2) + region
	nameW := max(m.contentWidth-(3+2+profW+2+regW), 10)
	m.colWidths = []int{nameW, profW, regW}
}

// Init implements tea.Model.
func (m StackModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m StackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.calculateWidths()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter:
			if len(m.filtered) > 0 {
				m.selected = m.filtered[m.cursor].name
				m.quitting = true
				return m, tea.Quit
			}

		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}

		case tea.KeyDown:
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				if m.cursor >= m.offset+listHeight {
					m.offset = m.cursor - listHeight + 1
				}
			}

		case tea.KeyBackspace:
			if len(m.search) > 0 {
				m.search = m.search[:len(m.search)-1]
				m.filter()
			}

		case tea.KeyRunes:
			m.search += string(msg.Runes)
			m.filter()
		}
	}

	return m, nil
}

func (m *StackModel) filter() {
	if m.search == "" {
		m.filtered = m.items
	} else {
		query := strings.ToLower(m.search)
		m.filtered = nil
		for _, item := range m.items {
			if strings.Contains(strings.ToLower(item.name), query) {
				m.filtered = append(m.filtered, item)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
	m.offset = 0
}

func (m StackModel) line(sb *strings.Builder, content string) {
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString(content)
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString("\n")
}

func (m StackModel) rule(sb *strings.Builder, left, right string) {
	sb.WriteString(BorderStyle.Render(left))
	sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, m.contentWidth)))
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
}

// View implements tea.Model.
func (m StackModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	w := m.contentWidth
	blank := strings.Repeat(" ", w)

	m.rule(&sb, TopLeft, TopRight)
	m.line(&sb, NameStyle.Render(padRight(" > "+m.search, w)))
	m.line(&sb, blank)

	end := min(m.offset+listHeight, len(m.filtered))
	for i := m.offset; i < end; i++ {
		m.line(&sb, m.renderRow(i))
	}
	for i := end; i < m.offset+listHeight; i++ {
		m.line(&sb, blank)
	}

	m.line(&sb, blank)
	m.rule(&sb, LeftT, RightT)
	m.renderDetails(&sb)
	m.rule(&sb, BottomLeft, BottomRight)

	count := fmt.Sprintf("  %d/%d stacks", len(m.filtered), len(m.items))
	hints := "[Enter:select] [Esc:quit]"
	padding := w + 2 - runewidth.StringWidth(count) - runewidth.StringWidth(hints)
	sb.WriteString(count)
	if padding > 0 {
		sb.WriteString(strings.Repeat(" ", padding))
	}
	sb.WriteString(HintStyle.Render(hints))
	sb.WriteString("\n")

	return sb.String()
}

func (m StackModel) renderRow(idx int) string {
	item := m.filtered[idx]

	cursor, marker := " ", " "
	if idx == m.cursor {
		cursor = ">"
	}
	if item.current {
		marker = "*"
	}

	nameStyle := NameStyle
	if item.current {
		nameStyle = RunningStyle
	}

	var line strings.Builder
	line.WriteString(" " + cursor + marker)
	line.WriteString(nameStyle.Render(padRight(item.name, m.colWidths[0])) + "  ")
	line.WriteString(MutedStyle.Render(padRight(orDash(item.entry.Profile), m.colWidths[1])) + "  ")
	line.WriteString(ValueStyle.Render(padRight(orDash(item.entry.Region), m.colWidths[2])))

	plain := 3 + m.colWidths[0] + 2 + m.colWidths[1] + 2 + m.colWidths[2]
	if plain < m.contentWidth {
		line.WriteString(strings.Repeat(" ", m.contentWidth-plain))
	}
	return line.String()
}

func (m StackModel) renderDetails(sb *strings.Builder) {
	w := m.contentWidth
	m.line(sb, HeaderStyle.Render(padRight(" Stack Details", w)))
	m.line(sb, MutedStyle.Render(padRight(" "+strings.Repeat(Horizontal, 20), w)))

	if len(m.filtered) == 0 {
		m.line(sb, MutedStyle.Render(padRight(" No stacks found", w)))
		for range 3 {
			m.line(sb, strings.Repeat(" ", w))
		}
		return
	}

	item := m.filtered[m.cursor]
	details := []struct {
		label string
		value string
		style lipgloss.Style
	}{
		{"Stack:", item.name, NameStyle},
		{"Config:", orDash(item.entry.ConfigFile), ValueStyle},
		{"Profile:", orDash(item.entry.Profile), MutedStyle},
		{"Region:", orDash(item.entry.Region), ValueStyle},
	}

	for _, d := range details {
		value := d.value
		if limit := w - 1 - detailLabelWidth; runewidth.StringWidth(value) > limit {
			value = runewidth.Truncate(value, limit, "...")
		}
		line := MutedStyle.Render(" "+padRight(d.label, detailLabelWidth)) + d.style.Render(value)
		if plain := 1 + detailLabelWidth + runewidth.StringWidth(value); plain < w {
			line += strings.Repeat(" ", w-plain)
		}
		m.line(sb, line)
	}
}

// SelectStack runs the interactive stack selector and returns the chosen
// stack name. The current stack is pre-highlighted.
func SelectStack(state *config.State) (string, error) {
	names := state.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("no stacks available")
	}

	items := make([]stackItem, len(names))
	for i, name := range names {
		items[i] = stackItem{name: name, entry: state.Stacks[name], current: name == state.CurrentStack}
	}

	m := newStackModel(items)
	for i, item := range items {
		if item.current {
			m.cursor = i
			break
		}
	}

	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", fmt.Errorf("error running selector: %w", err)
	}

	result := finalModel.(StackModel)
	if result.cancelled {
		return "", fmt.Errorf("selection cancelled")
	}
	return result.selected, nil
}
