package x11

import (
	"unicode"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glasslock/internal/message"
)

const (
	keysymBackSpace = 0xff08
	keysymReturn    = 0xff0d
	keysymEscape    = 0xff1b
	keysymKPEnter   = 0xff8d
	keysymKPSpace   = 0xff80

	// Keysyms in this range encode a Unicode code point in the low bits.
	keysymUnicodeBase = 0x01000000
	keysymUnicodeMax  = 0x0110ffff
)

// TranslateKey maps a resolved keysym to a lock screen event. capsLock
// swaps the case of letters. ok is false for keysyms the lock screen has
// no use for (modifiers, function keys, arrows).
func TranslateKey(sym xproto.Keysym, capsLock bool) (message.Event, bool) {
	switch sym {
	case keysymReturn, keysymKPEnter:
		return message.Event{Type: message.EventKeyPress, Key: message.KeyReturn}, true
	case keysymBackSpace:
		return message.Event{Type: message.EventKeyPress, Key: message.KeyBackSpace}, true
	case keysymEscape:
		return message.Event{Type: message.EventKeyPress, Key: message.KeyEscape}, true
	case keysymKPSpace:
		return textEvent(' '), true
	}

	r, ok := keysymRune(uint32(sym))
	if !ok {
		return message.Event{}, false
	}
	if capsLock {
		switch {
		case unicode.IsLower(r):
			r = unicode.ToUpper(r)
		case unicode.IsUpper(r):
			r = unicode.ToLower(r)
		}
	}
	return textEvent(r), true
}

func keysymRune(sym uint32) (rune, bool) {
	switch {
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		return rune(sym), true
	case sym >= 0xffb0 && sym <= 0xffb9:
		// Keypad digits.
		return rune('0' + sym - 0xffb0), true
	case sym >= keysymUnicodeBase+0x20 && sym <= keysymUnicodeMax:
		r := rune(sym - keysymUnicodeBase)
		if !unicode.IsPrint(r) {
			return 0, false
		}
		return r, true
	}
	return 0, false
}

func textEvent(r rune) message.Event {
	return message.Event{Type: message.EventKeyPress, Text: string(r)}
}

// keysymColumn picks the keysym table column for a key press state:
// column 0 and 1 are the unshifted and shifted group 1 symbols, 4 and 5
// the ISO_Level3_Shift (AltGr) symbols.
func keysymColumn(state, shiftMask, level3Mask uint16) byte {
	col := byte(0)
	if level3Mask != 0 && state&level3Mask != 0 {
		col = 4
	}
	if state&shiftMask != 0 {
		col++
	}
	return col
}
