package core

import (
	"strings"
	"testing"
)

func TestIsBlankCredential(t *testing.T) {
	for _, blank := range []string{"", " ", "\t", "\n  \t"} {
		if !IsBlankCredential(blank) {
			t.Errorf("IsBlankCredential(%q) = false, want true", blank)
		}
	}
	if IsBlankCredential("sk-x") {
		t.Error("IsBlankCredential(sk-x) = true, want false")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("sk-test-credential")
	b := Fingerprint("sk-test-credential")
	c := Fingerprint("sk-other")

	if a != b {
		t.Error("fingerprint not stable")
	}
	if a == c {
		t.Error("distinct credentials share a fingerprint")
	}
	if len(a) != 16 {
		t.Errorf("len(fingerprint) = %d, want 16", len(a))
	}
	if strings.Contains(a, "sk-") {
		t.Error("fingerprint leaks credential text")
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "*"},
		{"ab", "**"},
		{"abc", "a*c"},
		{"abcdef", "a****f"},
		{"sk-1234567890", "sk-…90"},
		{"AIzaSyExample", "AIz…le"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MaskCredential(tt.in); got != tt.want {
				t.Errorf("MaskCredential(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
