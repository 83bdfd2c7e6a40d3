package output

import (
	"os"

	"charm.land/lipgloss/v2"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var (
	enabled      = true
	forceDisable = false
)

// Init initializes color output based on environment and flags.
// Call this early in the application lifecycle.
func Init(noColor bool) {
	forceDisable = noColor
	if forceDisable {
		enabled = false
		return
	}

	// Check NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		enabled = false
		return
	}

	// Check if output is a TTY
	if !isTerminal(os.Stdout) {
		enabled = false
		return
	}

	enabled = true
}

// isTerminal checks if the file descriptor is a terminal.
func isTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// render applies style if colors are enabled.
func render(style lipgloss.Style, text string) string {
	if !enabled {
		return text
	}
	return style.Render(text)
}

// Success returns green text.
func Success(text string) string {
	return render(successStyle, text)
}

// Error returns bold red text.
func Error(text string) string {
	return render(errorStyle, text)
}

// Warning returns yellow text.
func Warning(text string) string {
	return render(warningStyle, text)
}

// Info returns blue text.
func Info(text string) string {
	return render(infoStyle, text)
}

// Dim returns gray text.
func Dim(text string) string {
	return render(dimStyle, text)
}

// Cyan returns cyan text.
func Cyan(text string) string {
	return render(cyanStyle, text)
}

// Heading returns bold underlined text.
func Heading(text string) string {
	return render(headingStyle, text)
}

// Enabled returns whether colors are currently enabled.
func Enabled() bool {
	return enabled
}
