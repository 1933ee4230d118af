package sse

import "testing"

func TestEncoder_FormatData_SingleLine(t *testing.T) {
	encoder := NewEncoder()

	result := string(encoder.FormatData([]byte(`{"type":"access"}`)))

	expected := "data: {\"type\":\"access\"}\n\n"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestEncoder_FormatData_MultiLine(t *testing.T) {
	encoder := NewEncoder()

	result := string(encoder.FormatData([]byte("Line 1\nLine 2\nLine 3")))

	expected := "data: Line 1\ndata: Line 2\ndata: Line 3\n\n"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestEncoder_FormatComment(t *testing.T) {
	encoder := NewEncoder()

	result := encoder.FormatComment("hello\nworld")

	expected := ": hello\n: world\n\n"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestEncoder_FormatKeepalive(t *testing.T) {
	encoder := NewEncoder()

	if got := encoder.FormatKeepalive(); got != ": keepalive\n\n" {
		t.Errorf("unexpected keepalive %q", got)
	}
}
