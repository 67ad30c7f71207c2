package modem

import (
	"errors"
	"fmt"
)

// Kind identifies why an encode or decode call failed.
type Kind int

const (
	KindUnknown Kind = iota
	EmptyMessage
	InvalidDuration
	UnsupportedCodePoint
	NoStartSignal
	EmptyPayload
	InvalidConfig
)

func (k Kind) String() string {
	switch k {
	case EmptyMessage:
		return "empty message"
	case InvalidDuration:
		return "invalid duration"
	case UnsupportedCodePoint:
		return "unsupported code point"
	case NoStartSignal:
		return "no start signal"
	case EmptyPayload:
		return "empty payload"
	case InvalidConfig:
		return "invalid config"
	default:
		return "unknown"
	}
}

// Error is the failure value returned by the modem. Two errors match with
// errors.Is when their kinds are equal, so the sentinels below can be used
// as targets regardless of Detail.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "modem: " + e.Kind.String()
	}
	return fmt.Sprintf("modem: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyMessage         = &Error{Kind: EmptyMessage}
	ErrInvalidDuration      = &Error{Kind: InvalidDuration}
	ErrUnsupportedCodePoint = &Error{Kind: UnsupportedCodePoint}
	ErrNoStartSignal        = &Error{Kind: NoStartSignal}
	ErrEmptyPayload         = &Error{Kind: EmptyPayload}
	ErrInvalidConfig        = &Error{Kind: InvalidConfig}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or KindUnknown if err is not a
// modem error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// WarningKind tags a non-fatal condition met while decoding.
type WarningKind int

const (
	// TruncatedFrame means no End tone followed the Start tone.
	TruncatedFrame WarningKind = iota
	// AmbiguousBit means a payload chunk matched neither bit frequency and
	// the nearer one was guessed.
	AmbiguousBit
	// PaddedPayload means the bit count was not a multiple of 8.
	PaddedPayload
)

func (k WarningKind) String() string {
	switch k {
	case TruncatedFrame:
		return "truncated frame"
	case AmbiguousBit:
		return "ambiguous bit"
	case PaddedPayload:
		return "padded payload"
	default:
		return "unknown"
	}
}

type Warning struct {
	Kind      WarningKind
	Chunk     int     // chunk index the warning refers to, -1 if none
	Frequency float64 // dominant frequency of that chunk
	Bit       byte    // guessed symbol for AmbiguousBit
}

func (w Warning) String() string {
	switch w.Kind {
	case AmbiguousBit:
		return fmt.Sprintf("%s: chunk %d at %.1f Hz guessed as '%c'", w.Kind, w.Chunk, w.Frequency, w.Bit)
	case TruncatedFrame:
		return fmt.Sprintf("%s: no end tone after chunk %d", w.Kind, w.Chunk)
	default:
		return w.Kind.String()
	}
}
