package util

import (
	"context"
	"testing"
	"time"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name          string
		val, min, max float64
		want          float64
	}{
		{"inside", 5, 0, 10, 5},
		{"below", -1, 0, 10, 0},
		{"above", 11, 0, 10, 10},
		{"edge", 10, 0, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.val, tt.min, tt.max); got != tt.want {
				t.Fatalf("Clamp(%v, %v, %v) = %v, want %v", tt.val, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(3.14159); got != 3.14 {
		t.Fatalf("Round2() = %v, want 3.14", got)
	}
	if got := Round2(8.9017); got != 8.9 {
		t.Fatalf("Round2() = %v, want 8.9", got)
	}
}

func TestWaitForSecondsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := WaitForSeconds(ctx, 5)
	if err == nil {
		t.Fatalf("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait was not interrupted")
	}
}

func TestNormalizeFlagName(t *testing.T) {
	cases := map[string]string{
		"image":    "--image",
		"-image":   "--image",
		"--image":  "--image",
		" sender ": "--sender",
	}
	for in, want := range cases {
		if got := normalizeFlagName(in); got != want {
			t.Fatalf("normalizeFlagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMissingFlags(t *testing.T) {
	t.Cleanup(func() { requiredFlags = nil })
	requiredFlags = nil

	image, sender, out := "", "me@example.com", "  "
	RequiredFlag(&image, "image")
	RequiredFlag(&sender, "-sender")
	RequiredFlag(&out, "--out")

	missing := MissingFlags()
	if len(missing) != 2 || missing[0] != "--image" || missing[1] != "--out" {
		t.Fatalf("MissingFlags() = %v", missing)
	}
}
