package utils

import (
	"strings"
	"testing"

	"roomrelay/pkg/validation"
)

func TestNewConnectionID(t *testing.T) {
	id1 := NewConnectionID()
	id2 := NewConnectionID()

	if id1 == id2 {
		t.Error("expected different IDs")
	}
	if err := validation.ValidateConnectionID(id1); err != nil {
		t.Errorf("generated id %q does not validate: %v", id1, err)
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("expected prefix 'req_', got %s", id)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string", "hello", 10, "hello"},
		{"long string", "hello world", 5, "he..."},
		{"very short max", "hello", 2, "he"},
		{"exact length", "hello", 5, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}
