package humanizer

import (
	"strings"
	"testing"
)

func TestVaryPunctuation(t *testing.T) {
	in := "Fast - and cheap - tools."
	if got := VaryPunctuation(in, constRand{0}); got != "Fast — and cheap — tools." {
		t.Errorf("em dash: got %q", got)
	}
	if got := VaryPunctuation(in, constRand{0.9}); got != "Fast – and cheap – tools." {
		t.Errorf("en dash: got %q", got)
	}

	quoted := `She said "yes" and "no".`
	if got := VaryPunctuation(quoted, constRand{0}); got != `She said “yes” and "no".` {
		t.Errorf("quotes: got %q", got)
	}
	if got := VaryPunctuation(quoted, constRand{0.5}); got != quoted {
		t.Errorf("quotes should stay straight above 0.3, got %q", got)
	}

	plain := "Nothing to vary here."
	if got := VaryPunctuation(plain, constRand{0}); got != plain {
		t.Errorf("got %q", got)
	}
}

func TestAddInvisibleCharacters(t *testing.T) {
	in := "one two three"
	got := AddInvisibleCharacters(in, 1, constRand{0})
	if got != "one \u200btwo three" {
		t.Errorf("got %q", got)
	}
	if strings.Count(got, "\u200b") != 1 {
		t.Error("expected exactly one zero-width space")
	}
	if got := AddInvisibleCharacters(in, invisibleRate, constRand{0.5}); got != in {
		t.Errorf("got %q", got)
	}
}
