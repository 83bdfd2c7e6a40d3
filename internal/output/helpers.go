package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Verbosity selects which messages reach stdout. Errors reach stderr at every
// level.
type Verbosity int

const (
	QuietLevel Verbosity = iota
	NormalLevel
	VerboseLevel
)

var (
	verbosity           = NormalLevel
	stdout    io.Writer = os.Stdout
	stderr    io.Writer = os.Stderr
)

// SetVerbosity sets the verbosity level.
func SetVerbosity(level Verbosity) {
	verbosity = level
}

// SetWriters redirects stdout and stderr output, mainly for tests.
func SetWriters(out, errOut io.Writer) {
	stdout = out
	stderr = errOut
}

func emit(level Verbosity, text string) {
	if verbosity >= level {
		io.WriteString(stdout, text)
	}
}

// Println prints a line at normal verbosity.
func Println(args ...interface{}) {
	emit(NormalLevel, fmt.Sprintln(args...))
}

// Printf prints formatted text at normal verbosity.
func Printf(format string, args ...interface{}) {
	emit(NormalLevel, fmt.Sprintf(format, args...))
}

// VerbosePrintf prints dimmed detail only with --verbose.
func VerbosePrintf(format string, args ...interface{}) {
	emit(VerboseLevel, styleLines(Dim, fmt.Sprintf(format, args...)))
}

// Done prints a check-marked success line.
func Done(format string, args ...interface{}) {
	emit(NormalLevel, Success("✓ "+fmt.Sprintf(format, args...))+"\n")
}

// Warn prints a warning line.
func Warn(format string, args ...interface{}) {
	emit(NormalLevel, Warning(fmt.Sprintf(format, args...))+"\n")
}

// PrintError writes err with its suggestion and code to stderr, whatever the
// verbosity.
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(stderr, FormatError(err))
}

// styleLines applies style per line so newlines stay outside escape codes.
func styleLines(style func(string) string, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style(line)
		}
	}
	return strings.Join(lines, "\n")
}
