package background

import (
	"strings"
	"testing"
)

func TestRingBufferDropsOldest(t *testing.T) {
	b := newRingBuffer(8)
	b.Write([]byte("abcd"))
	if b.Truncated() {
		t.Error("truncated before overflow")
	}
	b.Write([]byte("efgh"))
	b.Write([]byte("ij"))
	out, _ := b.ReadFrom(0)
	if string(out) != "cdefghij" {
		t.Errorf("content = %q, want cdefghij", out)
	}
	if !b.Truncated() {
		t.Error("truncated flag not set after drop")
	}
}

func TestRingBufferExactCapacityWrite(t *testing.T) {
	b := newRingBuffer(4)
	b.Write([]byte("abcd"))
	if b.Truncated() {
		t.Error("truncated set though no bytes were dropped")
	}
	out, _ := b.ReadFrom(0)
	if string(out) != "abcd" {
		t.Errorf("content = %q, want abcd", out)
	}
}

func TestRingBufferOversizedWrite(t *testing.T) {
	b := newRingBuffer(4)
	b.Write([]byte("abcdefgh"))
	out, _ := b.ReadFrom(0)
	if string(out) != "efgh" {
		t.Errorf("content = %q, want efgh", out)
	}
	if !b.Truncated() {
		t.Error("truncated flag not set")
	}
}

func TestRingBufferReadFromResumes(t *testing.T) {
	b := newRingBuffer(64)
	b.Write([]byte("hello "))
	out, next := b.ReadFrom(0)
	if string(out) != "hello " {
		t.Fatalf("first read = %q", out)
	}

	out, next2 := b.ReadFrom(next)
	if len(out) != 0 || next2 != next {
		t.Errorf("empty read returned %q, next %d", out, next2)
	}

	b.Write([]byte("world"))
	out, _ = b.ReadFrom(next)
	if string(out) != "world" {
		t.Errorf("resumed read = %q, want world", out)
	}
}

func TestRingBufferReadFromAfterDrop(t *testing.T) {
	b := newRingBuffer(4)
	b.Write([]byte("abcdef"))
	// Offset 0 fell off the front; the read resumes at the buffer head.
	out, _ := b.ReadFrom(0)
	if string(out) != "cdef" {
		t.Errorf("read = %q, want cdef", out)
	}
}

func TestRingBufferTail(t *testing.T) {
	b := newRingBuffer(1024)
	b.Write([]byte("one\ntwo\nthree\n"))

	tests := []struct {
		lines int
		want  string
	}{
		{0, "one\ntwo\nthree\n"},
		{1, "three\n"},
		{2, "two\nthree\n"},
		{10, "one\ntwo\nthree\n"},
	}
	for _, tt := range tests {
		if got := b.Tail(tt.lines); got != tt.want {
			t.Errorf("Tail(%d) = %q, want %q", tt.lines, got, tt.want)
		}
	}
}

func TestRingBufferTailNoTrailingNewline(t *testing.T) {
	b := newRingBuffer(1024)
	b.Write([]byte("one\ntwo"))
	if got := b.Tail(1); !strings.HasSuffix(got, "two") || strings.Contains(got, "one") {
		t.Errorf("Tail(1) = %q, want just the last line", got)
	}
}
