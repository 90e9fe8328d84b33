package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glasslock/internal/message"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		name   string
		sym    xproto.Keysym
		caps   bool
		want   message.Event
		wantOK bool
	}{
		{"lowercase letter", 'a', false, message.Event{Type: message.EventKeyPress, Text: "a"}, true},
		{"caps lock letter", 'a', true, message.Event{Type: message.EventKeyPress, Text: "A"}, true},
		{"caps lock digit", '7', true, message.Event{Type: message.EventKeyPress, Text: "7"}, true},
		{"space", ' ', false, message.Event{Type: message.EventKeyPress, Text: " "}, true},
		{"latin1", 0xe9, false, message.Event{Type: message.EventKeyPress, Text: "é"}, true},
		{"unicode keysym", 0x01000000 + 0x20ac, false, message.Event{Type: message.EventKeyPress, Text: "€"}, true},
		{"keypad digit", 0xffb3, false, message.Event{Type: message.EventKeyPress, Text: "3"}, true},
		{"return", 0xff0d, false, message.Event{Type: message.EventKeyPress, Key: message.KeyReturn}, true},
		{"keypad enter", 0xff8d, false, message.Event{Type: message.EventKeyPress, Key: message.KeyReturn}, true},
		{"backspace", 0xff08, false, message.Event{Type: message.EventKeyPress, Key: message.KeyBackSpace}, true},
		{"escape", 0xff1b, false, message.Event{Type: message.EventKeyPress, Key: message.KeyEscape}, true},
		{"shift modifier", 0xffe1, false, message.Event{}, false},
		{"arrow", 0xff52, false, message.Event{}, false},
		{"no symbol", 0, false, message.Event{}, false},
		{"unicode control", 0x01000000 + 0x07, false, message.Event{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TranslateKey(tt.sym, tt.caps)
			if ok != tt.wantOK {
				t.Fatalf("TranslateKey(%#x) ok = %v, want %v", tt.sym, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("TranslateKey(%#x) = %+v, want %+v", tt.sym, got, tt.want)
			}
		})
	}
}

func TestKeysymColumn(t *testing.T) {
	const shift, level3 = uint16(xproto.ModMaskShift), uint16(xproto.ModMask5)

	tests := []struct {
		state  uint16
		level3 uint16
		want   byte
	}{
		{0, level3, 0},
		{shift, level3, 1},
		{level3, level3, 4},
		{shift | level3, level3, 5},
		{level3, 0, 0},
		{uint16(xproto.ModMaskLock), level3, 0},
	}
	for _, tt := range tests {
		if got := keysymColumn(tt.state, shift, tt.level3); got != tt.want {
			t.Fatalf("keysymColumn(%#x, level3=%#x) = %d, want %d", tt.state, tt.level3, got, tt.want)
		}
	}
}
