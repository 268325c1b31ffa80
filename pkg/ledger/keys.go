package ledger

import (
	"encoding/binary"
	"errors"
)

// Prefix builds a length-prefixed namespace so that no two namespaces can
// share a key prefix ("ab"+"c" never collides with "a"+"bc").
func Prefix(parts ...string) []byte {
	var out []byte
	for _, p := range parts {
		out = binary.BigEndian.AppendUint16(out, uint16(len(p)))
		out = append(out, p...)
	}
	return out
}

// Key joins a prefix and a suffix into a fresh slice.
func Key(prefix []byte, suffix ...byte) []byte {
	out := make([]byte, 0, len(prefix)+len(suffix))
	out = append(out, prefix...)
	return append(out, suffix...)
}

// Uint64Key appends n in big-endian so byte order matches numeric order.
func Uint64Key(prefix []byte, n uint64) []byte {
	return binary.BigEndian.AppendUint64(Key(prefix), n)
}

// EncodeUint64 and DecodeUint64 store scalar counters.
func EncodeUint64(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.Join(ErrStorage, errors.New("ledger: counter is not 8 bytes"))
	}
	return binary.BigEndian.Uint64(b), nil
}

// SplitPrefix parses the leading namespace segment written by Prefix.
func SplitPrefix(b []byte) (part string, rest []byte, ok bool) {
	if len(b) < 2 {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return "", nil, false
	}
	return string(b[2 : 2+n]), b[2+n:], true
}
