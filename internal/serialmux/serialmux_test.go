package serialmux

import (
	"context"
	"testing"
	"time"
)

func TestMonitorFansOutLines(t *testing.T) {
	m := NewMockSerialMux([]byte("0.01 -0.92 0.39\n0.02 -0.91 0.40\n"))

	id, ch := m.Subscribe()
	defer m.Unsubscribe(id)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Monitor(ctx) }()

	var lines []string
	for len(lines) < 2 {
		select {
		case line := <-ch:
			lines = append(lines, line)
		case <-ctx.Done():
			t.Fatalf("timed out after %d lines", len(lines))
		}
	}

	if lines[0] != "0.01 -0.92 0.39" || lines[1] != "0.02 -0.91 0.40" {
		t.Errorf("unexpected lines: %v", lines)
	}

	// Monitor returns nil on EOF.
	if err := <-done; err != nil {
		t.Errorf("Monitor returned %v", err)
	}
}

func TestSendCommandAppendsNewline(t *testing.T) {
	port := &MockSerialPort{}
	m := NewSerialMux(port)

	if err := m.SendCommand("R10"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if got := string(port.WrittenData); got != "R10\n" {
		t.Errorf("wrote %q", got)
	}
}

func TestInitializeSendsStartupSequence(t *testing.T) {
	port := &MockSerialPort{}
	m := NewSerialMux(port)

	if err := m.Initialize(10); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	want := "R10\nG2\nOT\nS1\n"
	if got := string(port.WrittenData); got != want {
		t.Errorf("wrote %q, want %q", got, want)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	m := NewMockSerialMux(nil)
	_, ch := m.Subscribe()

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}
}

func TestParseSampleLine(t *testing.T) {
	x, y, z, err := ParseSampleLine("  0.02\t-0.91 0.40 ")
	if err != nil {
		t.Fatalf("ParseSampleLine: %v", err)
	}
	if x != 0.02 || y != -0.91 || z != 0.40 {
		t.Errorf("got (%v, %v, %v)", x, y, z)
	}

	for _, bad := range []string{"", "1 2", "1 2 3 4", "a b c"} {
		if _, _, _, err := ParseSampleLine(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
