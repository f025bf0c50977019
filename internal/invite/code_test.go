package invite

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	tests := []struct {
		name     string
		alphabet CodeAlphabet
		length   int
		banned   string
	}{
		{"short code", ShortCode, 6, "01IO"},
		{"join code", JoinCode, 8, "abcxyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 500; i++ {
				code, err := Generate(tt.alphabet)
				if err != nil {
					t.Fatalf("Generate failed: %v", err)
				}
				if len(code) != tt.length {
					t.Fatalf("len(%q) = %d, want %d", code, len(code), tt.length)
				}
				for _, r := range code {
					if !strings.ContainsRune(tt.alphabet.Charset, r) {
						t.Fatalf("%q contains %q outside the alphabet", code, r)
					}
					if strings.ContainsRune(tt.banned, r) {
						t.Fatalf("%q contains banned character %q", code, r)
					}
				}
			}
		})
	}
}

func TestJoinCodeCharset(t *testing.T) {
	if len(JoinCode.Charset) != 36 {
		t.Errorf("join charset has %d characters, want 36", len(JoinCode.Charset))
	}
	for _, r := range JoinCode.Charset {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Errorf("unexpected character %q", r)
		}
	}
}

func TestGenerateUsesWholeAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 2000; i++ {
		code, err := Generate(ShortCode)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, r := range code {
			seen[r] = true
		}
	}
	if len(seen) != len(ShortCode.Charset) {
		t.Errorf("saw %d distinct characters, want %d", len(seen), len(ShortCode.Charset))
	}
}

func TestGenerateInvalidAlphabet(t *testing.T) {
	if _, err := Generate(CodeAlphabet{Name: "empty", Length: 4}); err == nil {
		t.Error("expected error for empty charset")
	}
	if _, err := Generate(CodeAlphabet{Name: "zero", Charset: "AB"}); err == nil {
		t.Error("expected error for zero length")
	}
}
