package iohelper

import (
	"strings"
	"testing"
)

func TestReadBody_NilReader(t *testing.T) {
	body, truncated, err := ReadBody(nil, 10)
	if err != nil {
		t.Errorf("Expected no error for nil reader, got %v", err)
	}
	if len(body) != 0 || truncated {
		t.Errorf("Expected empty untruncated body, got %d bytes truncated=%v", len(body), truncated)
	}
}

func TestReadBody_RespectsLimit(t *testing.T) {
	body, truncated, err := ReadBody(strings.NewReader(strings.Repeat("x", 1000)), 100)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(body) != 100 {
		t.Errorf("Expected 100 bytes (limit), got %d", len(body))
	}
	if !truncated {
		t.Error("Expected truncated=true")
	}
}

func TestReadBody_ExactFitIsNotTruncated(t *testing.T) {
	body, truncated, err := ReadBody(strings.NewReader("12345"), 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(body) != "12345" || truncated {
		t.Errorf("got %q truncated=%v", body, truncated)
	}
}

func TestReadBody_NonPositiveLimitUsesDefault(t *testing.T) {
	body, _, err := ReadBody(strings.NewReader("small data"), 0)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if string(body) != "small data" {
		t.Errorf("Expected 'small data', got %q", body)
	}
}
