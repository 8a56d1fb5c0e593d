package speech

import (
	"context"
	"errors"
	"testing"
)

func TestUnavailableRecognizer(t *testing.T) {
	var r Recognizer = Unavailable{}
	if r.Available() {
		t.Fatalf("null recognizer reports available")
	}
	if _, err := r.Recognize(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewCommandBlankFallsBack(t *testing.T) {
	if NewCommand("").Available() {
		t.Fatalf("blank command must fall back to Unavailable")
	}
	if NewCommand("   ").Available() {
		t.Fatalf("whitespace command must fall back to Unavailable")
	}
}

func TestNewCommandMissingBinaryFallsBack(t *testing.T) {
	r := NewCommand("definitely-not-a-real-recognizer-binary")
	if r.Available() {
		t.Fatalf("missing binary must fall back to Unavailable")
	}
}
