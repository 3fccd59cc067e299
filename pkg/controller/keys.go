package controller

const (
	esc = 0x1b
	bel = 0x07
)

type keyKind int

const (
	keyByte keyKind = iota
	keyEscape
	keyUp
	keyDown
	keyRight
	keyLeft
	keyShiftUp
	keyShiftDown
	keyShiftRight
	keyShiftLeft
	// keySequence is any other escape sequence. It is swallowed.
	keySequence
)

type key struct {
	kind keyKind
	b    byte
}

// nextKey decodes the first key in buf. n is 0 when buf ends in the middle
// of an escape sequence.
//
// A bare ESC, or ESC followed by something that does not start a sequence,
// is the Escape key and consumes a single byte. ESC '[' starts a CSI
// sequence: parameter bytes 0x30-0x3F, intermediate bytes 0x20-0x2F, one
// final byte 0x40-0x7E. ESC 'O' followed by A-D is an application-mode
// cursor key.
func nextKey(buf []byte) (key, int) {
	if len(buf) == 0 {
		return key{}, 0
	}
	if buf[0] != esc {
		return key{kind: keyByte, b: buf[0]}, 1
	}
	if len(buf) == 1 {
		return key{kind: keyEscape}, 1
	}

	switch buf[1] {
	case 'O':
		if len(buf) >= 3 {
			if k, ok := cursorKey(buf[2], false); ok {
				return k, 3
			}
		}
		return key{kind: keyEscape}, 1
	case '[':
		i := 2
		for i < len(buf) && buf[i] >= 0x30 && buf[i] <= 0x3f {
			i++
		}
		params := string(buf[2:i])
		for i < len(buf) && buf[i] >= 0x20 && buf[i] <= 0x2f {
			i++
		}
		if i == len(buf) {
			return key{}, 0
		}
		final := buf[i]
		if final < 0x40 || final > 0x7e {
			return key{kind: keyEscape}, 1
		}
		switch params {
		case "":
			if k, ok := cursorKey(final, false); ok {
				return k, i + 1
			}
		case "1;2":
			if k, ok := cursorKey(final, true); ok {
				return k, i + 1
			}
		}
		return key{kind: keySequence}, i + 1
	}
	return key{kind: keyEscape}, 1
}

func cursorKey(final byte, shift bool) (key, bool) {
	var k keyKind
	switch final {
	case 'A':
		k = keyUp
	case 'B':
		k = keyDown
	case 'C':
		k = keyRight
	case 'D':
		k = keyLeft
	default:
		return key{}, false
	}
	if shift {
		k += keyShiftUp - keyUp
	}
	return key{kind: k}, true
}

// direction folds arrow keys and their i/k/j/l letters into one key kind.
// Upper case letters map to the shifted arrows.
func direction(k key) keyKind {
	if k.kind != keyByte {
		return k.kind
	}
	switch k.b {
	case 'i':
		return keyUp
	case 'k':
		return keyDown
	case 'l':
		return keyRight
	case 'j':
		return keyLeft
	case 'I':
		return keyShiftUp
	case 'K':
		return keyShiftDown
	case 'L':
		return keyShiftRight
	case 'J':
		return keyShiftLeft
	}
	return keyByte
}
