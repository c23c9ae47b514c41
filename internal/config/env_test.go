package config

import (
	"testing"
	"time"
)

func TestStringFallsBackWhenUnsetOrBlank(t *testing.T) {
	t.Setenv("ADBKIT_TEST_STRING", "  ")
	if got := String("ADBKIT_TEST_STRING", "adb"); got != "adb" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
	t.Setenv("ADBKIT_TEST_STRING", " /opt/adb ")
	if got := String("ADBKIT_TEST_STRING", "adb"); got != "/opt/adb" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestDurationIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("ADBKIT_TEST_DURATION", "soon")
	if got := Duration("ADBKIT_TEST_DURATION", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	t.Setenv("ADBKIT_TEST_DURATION", "250ms")
	if got := Duration("ADBKIT_TEST_DURATION", 5*time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected parsed duration, got %s", got)
	}
}

func TestIntIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("ADBKIT_TEST_INT", "many")
	if got := Int("ADBKIT_TEST_INT", 64); got != 64 {
		t.Fatalf("expected fallback, got %d", got)
	}
	t.Setenv("ADBKIT_TEST_INT", "128")
	if got := Int("ADBKIT_TEST_INT", 64); got != 128 {
		t.Fatalf("expected parsed value, got %d", got)
	}
}

func TestBoolRecognizesCommonSpellings(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"0", false},
		{"False", false},
		{"no", false},
	}
	for _, tc := range cases {
		t.Setenv("ADBKIT_TEST_BOOL", tc.value)
		if got := Bool("ADBKIT_TEST_BOOL", !tc.want); got != tc.want {
			t.Fatalf("Bool(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
	t.Setenv("ADBKIT_TEST_BOOL", "maybe")
	if !Bool("ADBKIT_TEST_BOOL", true) {
		t.Fatal("unrecognized value must fall back")
	}
}
