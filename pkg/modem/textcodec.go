package modem

import (
	"strconv"
	"strings"
)

const bitsPerByte = 8

// TextToBits encodes every character as its code point in 8 bits, most
// significant bit first. Code points above 255 have no representation and
// are rejected, as is invalid UTF-8.
func TextToBits(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text) * bitsPerByte)
	i := 0
	for _, r := range text {
		if r > 0xff {
			return "", newError(UnsupportedCodePoint, "%U at character %d", r, i)
		}
		for shift := bitsPerByte - 1; shift >= 0; shift-- {
			if (r>>shift)&1 == 1 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		i++
	}
	return b.String(), nil
}

// PadBits right-pads bits with '0' up to the next multiple of 8.
func PadBits(bits string) string {
	if rem := len(bits) % bitsPerByte; rem != 0 {
		return bits + strings.Repeat("0", bitsPerByte-rem)
	}
	return bits
}

// Symbol is one decoded byte. Printable ASCII bytes are rendered as
// themselves, every other value as a bracketed decimal placeholder.
type Symbol struct {
	Value     byte
	Printable bool
}

func NewSymbol(v byte) Symbol {
	return Symbol{Value: v, Printable: v >= 32 && v <= 126}
}

func (s Symbol) String() string {
	if s.Printable {
		return string(rune(s.Value))
	}
	return "[" + strconv.Itoa(int(s.Value)) + "]"
}

type Symbols []Symbol

// Text joins the rendered symbols. Placeholders are not escaped, so a
// literal "[7]" in the original message is indistinguishable from byte 7;
// use Bytes when that matters.
func (s Symbols) Text() string {
	var b strings.Builder
	for _, sym := range s {
		b.WriteString(sym.String())
	}
	return b.String()
}

func (s Symbols) Bytes() []byte {
	out := make([]byte, len(s))
	for i, sym := range s {
		out[i] = sym.Value
	}
	return out
}

// BitsToSymbols pads bits to whole bytes and decodes each group of 8.
// Any symbol other than '1' counts as a zero bit.
func BitsToSymbols(bits string) Symbols {
	bits = PadBits(bits)
	out := make(Symbols, 0, len(bits)/bitsPerByte)
	for i := 0; i < len(bits); i += bitsPerByte {
		var v byte
		for _, c := range bits[i : i+bitsPerByte] {
			v <<= 1
			if c == '1' {
				v |= 1
			}
		}
		out = append(out, NewSymbol(v))
	}
	return out
}

func BitsToText(bits string) string {
	return BitsToSymbols(bits).Text()
}
