// Package cli provides the colored console output, tabular rendering,
// and interactive prompts amictl uses to present AMI connection
// status, action responses, and credential entry to an operator.
package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	Success = color.New(color.FgGreen).SprintFunc()
	Error   = color.New(color.FgRed).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()

	CheckMark = Success("✓")
	Cross     = Error("✗")
	Bullet    = Info("●")
	Arrow     = Info("→")
)

// PrintSuccess prints a success message, e.g. a completed connect or
// a Response: Success action result.
func PrintSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", CheckMark, fmt.Sprintf(format, args...))
}

// PrintError prints an error message, e.g. a *ami.Error surfaced from
// Connect or a failed action submission.
func PrintError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", Cross, fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", Warning("⚠"), fmt.Sprintf(format, args...))
}

// PrintInfo prints an informational line, e.g. one incoming event.
func PrintInfo(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", Bullet, fmt.Sprintf(format, args...))
}

// PrintHeader prints a boxed title, used at the start of amictl connect
// and amictl version output.
func PrintHeader(title string) {
	width := 60
	padding := (width - len(title) - 2) / 2
	fmt.Println()
	fmt.Println("╔" + strings.Repeat("═", width) + "╗")
	fmt.Printf("║%s %s %s║\n", strings.Repeat(" ", padding), Bold(title), strings.Repeat(" ", width-padding-len(title)-2))
	fmt.Println("╚" + strings.Repeat("═", width) + "╝")
	fmt.Println()
}

// PrintSeparator prints a horizontal rule between output sections.
func PrintSeparator() {
	fmt.Println(strings.Repeat("─", 60))
}

// PrintConnectionState renders a one-line colored summary of a
// lifecycle State, used by amictl connect after every state change.
func PrintConnectionState(state, banner string) {
	switch state {
	case "Running":
		PrintSuccess("%s (%s)", Bold(state), banner)
	case "Disconnected", "Closing":
		PrintWarning("%s", state)
	default:
		PrintInfo("%s", state)
	}
}
