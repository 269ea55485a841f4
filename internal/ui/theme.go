package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                  string
	Title, Muted, Accent, Success, Error  lipgloss.Style
	Pending, Selected, Disabled, Frame    lipgloss.Style
	Border                                lipgloss.Border
	SymOK, SymFail, SymPending, SymBullet string
	Cursor                                string
}

var current = build("classic")

func SetTheme(name string) { current = build(name) }

// Expose what renderers need
func Current() Theme { return current }

func build(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "neon":
		return Theme{
			Name:     "neon",
			Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
			Muted:    lipgloss.NewStyle().Faint(true),
			Accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
			Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
			Disabled: lipgloss.NewStyle().Faint(true).Strikethrough(true),
			Frame:    lipgloss.NewStyle().BorderForeground(lipgloss.Color("13")),
			Border:   lipgloss.RoundedBorder(),
			SymOK:    "✔", SymFail: "✖", SymPending: "◌", SymBullet: "◆",
			Cursor: "▸ ",
		}
	case "mono":
		plain := lipgloss.NewStyle()
		return Theme{
			Name:  "mono",
			Title: plain, Muted: plain, Accent: plain, Success: plain, Error: plain,
			Pending: plain, Selected: plain, Disabled: plain, Frame: plain,
			Border: lipgloss.ASCIIBorder(),
			SymOK:  "ok", SymFail: "x", SymPending: "...", SymBullet: "-",
			Cursor: "> ",
		}
	default: // classic
		return Theme{
			Name:     "classic",
			Title:    lipgloss.NewStyle().Bold(true),
			Muted:    lipgloss.NewStyle().Faint(true),
			Accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
			Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			Selected: lipgloss.NewStyle().Bold(true).Reverse(true),
			Disabled: lipgloss.NewStyle().Faint(true),
			Frame:    lipgloss.NewStyle().BorderForeground(lipgloss.Color("8")),
			Border:   lipgloss.RoundedBorder(),
			SymOK:    "✔", SymFail: "✖", SymPending: "…", SymBullet: "•",
			Cursor: "> ",
		}
	}
}
