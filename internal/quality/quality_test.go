package quality_test

import (
	"strings"
	"testing"

	"ainotes/internal/quality"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want quality.Tier
		ok   bool
	}{
		{"", quality.Balanced, true},
		{"simple", quality.Simple, true},
		{" Detailed ", quality.Detailed, true},
		{"BALANCED", quality.Balanced, true},
		{"ultra", quality.Balanced, false},
	}
	for _, tt := range tests {
		got, ok := quality.Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = %s,%v want %s,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInstruction(t *testing.T) {
	if !strings.HasPrefix(quality.Instruction(quality.Simple), "Create concise bullet-point notes") {
		t.Fatalf("unexpected SIMPLE instruction %q", quality.Instruction(quality.Simple))
	}
	if !strings.HasPrefix(quality.Instruction(quality.Detailed), "Create detailed lecture notes") {
		t.Fatalf("unexpected DETAILED instruction %q", quality.Instruction(quality.Detailed))
	}
	balanced := quality.Instruction(quality.Balanced)
	if quality.Instruction(quality.Tier("OTHER")) != balanced {
		t.Fatal("unknown tiers should use the balanced instruction")
	}
}
