package terminal

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeShellChars = regexp.MustCompile(`[^\w@%+=:,./-]`)

// Quote escapes s for a POSIX shell. Strings made only of safe characters
// are returned unchanged; anything else is single quoted.
// Example: /tmp/foo'bar -> '/tmp/foo'"'"'bar'
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !unsafeShellChars.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// QuoteArgs quotes each argument and joins them with spaces.
func QuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// UserShell returns the base name of the user's login shell, "sh" if unknown.
func UserShell() string {
	if s := strings.TrimSpace(os.Getenv("SHELL")); s != "" {
		return strings.TrimLeft(filepath.Base(s), "-")
	}
	return "sh"
}

// CommandLine builds the line typed into a window shell to run script.
//
// The line is kept out of the shell history: bash and sh delete the
// history entry, other shells (zsh, fish) skip lines with a leading space.
func CommandLine(shell, script string, clear, exec bool) string {
	var b strings.Builder
	switch strings.TrimLeft(filepath.Base(shell), "-") {
	case "bash", "sh":
		b.WriteString("history -d $(($HISTCMD-1)) && ")
	default:
		b.WriteByte(' ')
	}
	if clear {
		b.WriteString("clear && ")
	}
	if exec {
		b.WriteString("exec ")
	}
	b.WriteString(script)
	return b.String()
}
