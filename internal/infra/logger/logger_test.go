package logger

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", "prod"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewBuildsForEachEnv(t *testing.T) {
	for _, env := range []string{"dev", "prod", ""} {
		log, err := New("INFO", env)
		if err != nil {
			t.Fatalf("env %q: %v", env, err)
		}
		if !log.Core().Enabled(0) {
			t.Fatalf("env %q: info should be enabled", env)
		}
		if log.Core().Enabled(-1) {
			t.Fatalf("env %q: debug should be disabled", env)
		}
	}
}
