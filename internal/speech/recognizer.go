// Package speech provides optional voice input for the chat prompt.
//
// Recognition itself is delegated to an external command so the binary
// carries no audio stack. Any program that records from the default
// microphone and prints the transcript to stdout works, for example a
// small wrapper around vosk or whisper.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Lang is the recognition language passed to the external command.
const Lang = "ru-RU"

// ErrUnavailable indicates no recognizer is configured on this system.
var ErrUnavailable = errors.New("speech recognition unavailable")

// Recognizer captures one utterance and returns its transcript.
type Recognizer interface {
	// Recognize blocks until the user finishes speaking or ctx is done.
	Recognize(ctx context.Context) (string, error)
	Available() bool
}

// Unavailable is the null recognizer used when no command is configured.
type Unavailable struct{}

func (Unavailable) Recognize(context.Context) (string, error) { return "", ErrUnavailable }
func (Unavailable) Available() bool                           { return false }

// CommandRecognizer shells out to an external speech-to-text program.
// The command receives the language tag as its single argument and must
// print the recognized text to stdout.
type CommandRecognizer struct {
	command string
}

// NewCommand returns a recognizer backed by the given program, or
// Unavailable when the name is blank or not installed.
func NewCommand(command string) Recognizer {
	command = strings.TrimSpace(command)
	if command == "" {
		return Unavailable{}
	}
	if _, err := exec.LookPath(command); err != nil {
		return Unavailable{}
	}
	return &CommandRecognizer{command: command}
}

func (r *CommandRecognizer) Available() bool { return true }

func (r *CommandRecognizer) Recognize(ctx context.Context) (string, error) {
	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command, Lang)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %s: %w", r.command, msg, err)
		}
		return "", fmt.Errorf("%s: %w", r.command, err)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("no speech recognized")
	}
	return text, nil
}
