package theme

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors a theme is built from.
type Palette struct {
	Base     lipgloss.Color
	Mantle   lipgloss.Color
	Surface1 lipgloss.Color
	Text     lipgloss.Color
	Subtext0 lipgloss.Color
	Lavender lipgloss.Color
	Sapphire lipgloss.Color
	Green    lipgloss.Color
	Peach    lipgloss.Color
	Red      lipgloss.Color
}

// Mocha is used for the dark theme, Latte for the light one.
var (
	Mocha = Palette{
		Base:     lipgloss.Color("#1e1e2e"),
		Mantle:   lipgloss.Color("#181825"),
		Surface1: lipgloss.Color("#45475a"),
		Text:     lipgloss.Color("#cdd6f4"),
		Subtext0: lipgloss.Color("#a6adc8"),
		Lavender: lipgloss.Color("#b4befe"),
		Sapphire: lipgloss.Color("#74c7ec"),
		Green:    lipgloss.Color("#a6e3a1"),
		Peach:    lipgloss.Color("#fab387"),
		Red:      lipgloss.Color("#f38ba8"),
	}
	Latte = Palette{
		Base:     lipgloss.Color("#eff1f5"),
		Mantle:   lipgloss.Color("#e6e9ef"),
		Surface1: lipgloss.Color("#bcc0cc"),
		Text:     lipgloss.Color("#4c4f69"),
		Subtext0: lipgloss.Color("#6c6f85"),
		Lavender: lipgloss.Color("#7287fd"),
		Sapphire: lipgloss.Color("#209fb5"),
		Green:    lipgloss.Color("#40a02b"),
		Peach:    lipgloss.Color("#fe640b"),
		Red:      lipgloss.Color("#d20f39"),
	}
)

type Styles struct {
	Name    string
	Palette Palette

	App    lipgloss.Style
	Pane   lipgloss.Style
	Title  lipgloss.Style
	Muted  lipgloss.Style
	Hot    lipgloss.Style
	Ok     lipgloss.Style
	Alarm  lipgloss.Style
	Button lipgloss.Style
}

// For returns the styles for "dark" or "light"; anything else is light.
func For(name string) Styles {
	p := Latte
	if name == "dark" {
		p = Mocha
	} else {
		name = "light"
	}
	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface1).
		Background(p.Mantle).
		Foreground(p.Text).
		Padding(1)
	return Styles{
		Name:    name,
		Palette: p,
		App:     lipgloss.NewStyle().Background(p.Base).Foreground(p.Text).Padding(1, 2),
		Pane:    pane,
		Title:   lipgloss.NewStyle().Foreground(p.Sapphire).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(p.Subtext0),
		Hot:     lipgloss.NewStyle().Foreground(p.Peach).Bold(true),
		Ok:      lipgloss.NewStyle().Foreground(p.Green),
		Alarm:   lipgloss.NewStyle().Foreground(p.Base).Background(p.Red).Bold(true).Padding(0, 2),
		Button: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(p.Red).
			Foreground(p.Red).
			Bold(true).
			Padding(1, 4),
	}
}
