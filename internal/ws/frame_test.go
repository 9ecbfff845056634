package ws

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseFrame_Unmasked(t *testing.T) {
	raw := AppendFrame(nil, OpText, []byte("hello"), true)

	frame, n, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if n != len(raw) {
		t.Errorf("consumed = %d, want %d", n, len(raw))
	}
	if !frame.Fin {
		t.Error("Fin should be set")
	}
	if frame.Opcode != OpText {
		t.Errorf("Opcode = %v, want Text", frame.Opcode)
	}
	if string(frame.Payload) != "hello" {
		t.Errorf("Payload = %q, want hello", frame.Payload)
	}
}

func TestParseFrame_Masked(t *testing.T) {
	// Masked "ping!" from a client: FIN|text, mask bit, 4-byte key.
	payload := []byte("ping!")
	key := [4]byte{0x12, 0x34, 0x56, 0x78}
	raw := []byte{0x81, 0x80 | byte(len(payload))}
	raw = append(raw, key[:]...)
	for i, b := range payload {
		raw = append(raw, b^key[i&3])
	}

	frame, n, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if n != len(raw) {
		t.Errorf("consumed = %d, want %d", n, len(raw))
	}
	if string(frame.Payload) != "ping!" {
		t.Errorf("Payload = %q, want ping!", frame.Payload)
	}
}

func TestParseFrame_Extended16(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 300)
	raw := AppendFrame(nil, OpBinary, payload, true)

	frame, _, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if len(frame.Payload) != 300 {
		t.Errorf("len(Payload) = %d, want 300", len(frame.Payload))
	}
}

func TestParseFrame_Extended64(t *testing.T) {
	payload := bytes.Repeat([]byte("y"), 70000)
	raw := AppendFrame(nil, OpBinary, payload, true)

	frame, n, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if len(frame.Payload) != 70000 {
		t.Errorf("len(Payload) = %d, want 70000", len(frame.Payload))
	}
	if n != len(raw) {
		t.Errorf("consumed = %d, want %d", n, len(raw))
	}
}

func TestParseFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrIncomplete},
		{"one byte", []byte{0x81}, ErrIncomplete},
		{"reserved bits", []byte{0xC1, 0x00}, ErrReservedBits},
		{"bad opcode", []byte{0x83, 0x00}, ErrInvalidOpcode},
		{"fragmented ping", []byte{0x09, 0x00}, ErrFragmentedControl},
		{"oversize close", []byte{0x88, 126, 0x00, 0x80}, ErrControlTooLong},
		{"short payload", []byte{0x81, 0x05, 'h', 'i'}, ErrIncomplete},
		{"short mask", []byte{0x81, 0x85, 0x01, 0x02}, ErrIncomplete},
	}

	for _, tt := range tests {
		_, _, err := ParseFrame(tt.raw)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: ParseFrame() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParseFrame_Sequence(t *testing.T) {
	// Two frames back to back in one buffer.
	raw := AppendFrame(nil, OpText, []byte("one"), true)
	raw = AppendFrame(raw, OpText, []byte("two"), true)

	f1, n1, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if string(f1.Payload) != "one" {
		t.Errorf("first payload = %q", f1.Payload)
	}

	f2, n2, err := ParseFrame(raw[n1:])
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if string(f2.Payload) != "two" {
		t.Errorf("second payload = %q", f2.Payload)
	}
	if n1+n2 != len(raw) {
		t.Errorf("consumed %d+%d, want %d", n1, n2, len(raw))
	}
}

func TestCloseFrame(t *testing.T) {
	frame, _, err := ParseFrame(CloseFrame(CloseNormal))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if frame.Opcode != OpClose {
		t.Errorf("Opcode = %v, want Close", frame.Opcode)
	}
	if len(frame.Payload) != 2 || frame.Payload[0] != 0x03 || frame.Payload[1] != 0xE8 {
		t.Errorf("Payload = %v, want [3 232]", frame.Payload)
	}
}

func TestAcceptKey(t *testing.T) {
	// Known-answer from RFC 6455 §1.3.
	got := AcceptKey([]byte("dGhlIHNhbXBsZSBub25jZQ=="))
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("AcceptKey() = %q, want %q", got, want)
	}
}

func TestUpgrade_Check(t *testing.T) {
	valid := Upgrade{
		Upgrade:    []byte("WebSocket"),
		Connection: []byte("keep-alive, Upgrade"),
		Version:    []byte("13"),
		Key:        []byte("dGhlIHNhbXBsZSBub25jZQ=="),
	}
	if err := valid.Check(); err != nil {
		t.Errorf("Check() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Upgrade)
		want   error
	}{
		{"wrong upgrade", func(u *Upgrade) { u.Upgrade = []byte("h2c") }, ErrNotUpgrade},
		{"no upgrade token", func(u *Upgrade) { u.Connection = []byte("keep-alive") }, ErrMissingUpgradeTo},
		{"wrong version", func(u *Upgrade) { u.Version = []byte("8") }, ErrBadVersion},
		{"no key", func(u *Upgrade) { u.Key = nil }, ErrMissingKey},
	}

	for _, tt := range tests {
		u := valid
		tt.mutate(&u)
		if err := u.Check(); !errors.Is(err, tt.want) {
			t.Errorf("%s: Check() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}
