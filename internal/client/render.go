package client

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/netsnake/internal/core"
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:     lipgloss.NewStyle(),
	core.ColorRed:         lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorBrightGreen: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorGray:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

var (
	statusStyle = lipgloss.NewStyle().Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	overStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// RenderFrame colours a frame payload. Grid rows are coloured per glyph,
// with runs of the same colour grouped to keep escape sequences short. Any
// line that is not a grid row (the status line) is rendered in bold.
func RenderFrame(payload string) string {
	lines := strings.Split(strings.TrimSuffix(payload, "\n"), "\n")

	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if !isGridRow(line) {
			sb.WriteString(statusStyle.Render(line))
			continue
		}

		runes := []rune(line)
		x := 0
		for x < len(runes) {
			color := core.GlyphColor(runes[x])
			start := x
			for x < len(runes) && core.GlyphColor(runes[x]) == color {
				x++
			}
			style, ok := colorStyles[color]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(string(runes[start:x])))
		}
	}
	return sb.String()
}

func isGridRow(line string) bool {
	if line == "" {
		return false
	}
	for _, r := range line {
		switch r {
		case core.GlyphWall, core.GlyphFruit, core.GlyphSnake, core.GlyphEmpty:
		default:
			return false
		}
	}
	return true
}
