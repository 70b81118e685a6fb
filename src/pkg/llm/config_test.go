package llm

import (
	"context"
	"encoding/json"
	"testing"
)

func TestInitializeConfigKeepsExplicitZeroThreshold(t *testing.T) {
	t.Cleanup(func() { Cfg = DefaultValueConfig() })

	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"missing", `{"temperature": 0.2}`, DefaultConfidenceThreshold},
		{"explicit zero", `{"confidence_threshold": 0}`, 0},
		{"explicit value", `{"confidence_threshold": 55}`, 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var local Config
			if err := json.Unmarshal([]byte(tt.raw), &local); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			InitializeConfig(&local)
			if got := Cfg.Threshold(); got != tt.want {
				t.Fatalf("Threshold() = %v, want %v", got, tt.want)
			}
			if Cfg.Temperature == 0 {
				t.Fatalf("temperature default was not applied: %+v", Cfg)
			}
		})
	}
}

func TestZeroThresholdNeverCorrects(t *testing.T) {
	completer := &fakeCompleter{answer: "unused"}
	correction := NewCorrector(completer, 0, 0.1).CorrectIfNeeded(context.Background(), "raw", 0)
	if completer.calls != 0 || correction.Outcome != OutcomeSkipped {
		t.Fatalf("calls = %d, correction = %+v", completer.calls, correction)
	}
}
