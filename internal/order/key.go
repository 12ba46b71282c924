// Package order generates the lexicographic position keys that define card
// ordering inside a board column. Keys are opaque strings over a base-36
// alphabet; a new key can always be produced strictly between two existing
// neighbors without renumbering anything else.
package order

import (
	"errors"
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	base = len(alphabet)
	// sentinel digits for the open ends of a column
	lowEnd  = -1
	highEnd = base
)

var (
	// ErrBoundsOutOfOrder is returned when both bounds are set and prev does
	// not sort strictly before next.
	ErrBoundsOutOfOrder = errors.New("position bounds out of order")
	// ErrNoRoom is returned when the bounds are ordered but no key exists
	// strictly between them. Only keys from outside this package can be that
	// tight: generated keys never end in the smallest digit.
	ErrNoRoom = errors.New("no position exists between bounds")
)

// Key is a position inside a column. The zero Key means "open end" when
// passed to Between and must never be stored on a task. Keys are only
// produced by Between and Parse, keeping ad-hoc strings out of the ordering
// contract.
type Key struct {
	s string
}

// IsZero reports whether k is the open-end marker.
func (k Key) IsZero() bool { return k.s == "" }

func (k Key) String() string { return k.s }

// Compare orders keys by plain byte comparison, which is the column order.
func (k Key) Compare(o Key) int { return strings.Compare(k.s, o.s) }

// Less reports whether k sorts strictly before o.
func (k Key) Less(o Key) bool { return k.s < o.s }

// MarshalText implements encoding.TextMarshaler so keys round-trip through
// JSON as plain strings.
func (k Key) MarshalText() ([]byte, error) { return []byte(k.s), nil }

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes
// to the zero Key so optional fields survive round trips.
func (k *Key) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = Key{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Parse validates a stored position string. It accepts any non-empty string
// over the key alphabet, including legacy keys ending in the smallest digit.
func Parse(s string) (Key, error) {
	if s == "" {
		return Key{}, errors.New("empty position")
	}
	for i := 0; i < len(s); i++ {
		if digitOf(s[i]) < 0 {
			return Key{}, fmt.Errorf("position %q: invalid character %q", s, s[i])
		}
	}
	return Key{s: s}, nil
}

// MustParse is Parse for fixtures and tests; it panics on invalid input.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Between returns a key sorting strictly between prev and next. A zero prev
// means no lower bound, a zero next means no upper bound; both zero yields a
// fixed middle key so inserts into an empty column are reproducible.
//
// Repeated calls against the same bounds keep yielding fresh keys by growing
// the key length when no midpoint digit exists, so neighbors never need to
// be renumbered.
func Between(prev, next Key) (Key, error) {
	if !prev.IsZero() && !next.IsZero() && prev.s >= next.s {
		return Key{}, fmt.Errorf("%w: %q >= %q", ErrBoundsOutOfOrder, prev.s, next.s)
	}
	s, err := midpoint(prev.s, next.s)
	if err != nil {
		return Key{}, err
	}
	return Key{s: s}, nil
}

// midpoint walks both bounds digit by digit. prev is padded with an implicit
// digit below '0', next with an implicit digit above 'z', so open ends and
// unequal lengths fall out of the same scan.
func midpoint(prev, next string) (string, error) {
	var sb strings.Builder
	p, n := 0, 0
	pos := 0
	for p == n {
		p = digitOrLow(prev, pos)
		n = digitOrHigh(next, pos)
		pos++
	}
	sb.WriteString(prev[:pos-1])
	if p == lowEnd {
		// prev is a proper prefix of next: descend along next's smallest
		// digits until there is room below it.
		for n == 0 {
			if pos >= len(next) {
				// next is prev plus trailing zeros, nothing fits between
				return "", fmt.Errorf("%w: %q and %q", ErrNoRoom, prev, next)
			}
			n = digitOf(next[pos])
			pos++
			sb.WriteByte(alphabet[0])
		}
		if n == 1 {
			sb.WriteByte(alphabet[0])
			n = highEnd
		}
	} else if p+1 == n {
		// adjacent digits: keep prev's digit, skip its run of trailing
		// maximal digits, then split the remainder against the top.
		sb.WriteByte(alphabet[p])
		n = highEnd
		for {
			p = digitOrLow(prev, pos)
			pos++
			if p != base-1 {
				break
			}
			sb.WriteByte(alphabet[base-1])
		}
	}
	sb.WriteByte(alphabet[(p+n+1)/2])
	return sb.String(), nil
}

func digitOf(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	default:
		return -1
	}
}

func digitOrLow(s string, pos int) int {
	if pos < len(s) {
		return digitOf(s[pos])
	}
	return lowEnd
}

func digitOrHigh(s string, pos int) int {
	if pos < len(s) {
		return digitOf(s[pos])
	}
	return highEnd
}
