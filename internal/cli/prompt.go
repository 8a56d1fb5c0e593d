package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// promptLine asks for one non-empty line of input.
func (a *App) promptLine(label string) (string, error) {
	for {
		fmt.Fprintf(a.out, "%s: ", label)
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		value := strings.TrimSpace(line)
		if value == "" {
			fmt.Fprintf(a.out, "Поле не может быть пустым.\n")
			continue
		}
		return value, nil
	}
}

// promptPassword reads a password with masked input, falling back to a
// plain line when stdin is not a terminal.
func (a *App) promptPassword(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err == nil {
			return strings.TrimSpace(string(raw)), nil
		}
	}
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question, defaulting to no.
func (a *App) confirm(message string) bool {
	for {
		fmt.Fprintf(a.out, "%s [y/N]: ", message)
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "y", "yes", "д", "да":
			return true
		case "n", "no", "н", "нет", "":
			return false
		default:
			fmt.Fprintln(a.out, "Введите y или n.")
		}
	}
}
