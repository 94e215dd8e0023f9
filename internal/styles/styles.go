package styles

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#04B575")
	Secondary = lipgloss.Color("#3C3C3C")
	Warning   = lipgloss.Color("#FFCC00")
	Error     = lipgloss.Color("#FF5F56")
	Muted     = lipgloss.Color("#626262")
	White     = lipgloss.Color("#FFFFFF")
	Cyan      = lipgloss.Color("#00CED1")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(White).
			Background(Primary).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(10)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Cyan)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error)
)

// Title renders a section heading.
func Title(s string) string {
	return TitleStyle.Render(s)
}

// Field renders one "label value" line.
func Field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), ValueStyle.Render(value))
}

// Box frames lines in a rounded border.
func Box(lines ...string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func Warn(s string) string {
	return WarningStyle.Render(s)
}

func Err(s string) string {
	return ErrorStyle.Render(s)
}
