// Package digest provides the canonical encoding and hashing of block fields.
// The encoding matches a sorted-key JSON document so digests produced by
// earlier exports of the chain can be verified.
package digest

import (
	"crypto/sha256"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/ethereum/go-ethereum/common"
)

// Fields represents the set of block values that are covered by the digest.
type Fields struct {
	Index     uint64
	Timestamp float64
	Data      string
	PrevHash  string
	Nonce     uint64
}

// Encode returns the canonical encoding for the specified fields. Keys are
// written in sorted order so the output only depends on the field values.
func Encode(f Fields) []byte {
	t := NewTemplate(f)
	return t.encode(f.Nonce)
}

// Hash returns the hex encoded SHA-256 digest of the canonical encoding.
func Hash(f Fields) string {
	return sum(Encode(f))
}

// =============================================================================

// Template holds the canonical encoding of a set of fields with the nonce
// left open. Mining only changes the nonce, so the rest of the document is
// encoded once.
type Template struct {
	head []byte
	tail []byte
	buf  []byte
}

// NewTemplate constructs a template for the specified fields. The Nonce
// value of the fields is ignored.
func NewTemplate(f Fields) *Template {
	head := make([]byte, 0, len(f.Data)+64)
	head = append(head, `{"data": `...)
	head = appendString(head, f.Data)
	head = append(head, `, "index": `...)
	head = strconv.AppendUint(head, f.Index, 10)
	head = append(head, `, "nonce": `...)

	tail := make([]byte, 0, len(f.PrevHash)+64)
	tail = append(tail, `, "previous_hash": `...)
	tail = appendString(tail, f.PrevHash)
	tail = append(tail, `, "timestamp": `...)
	tail = append(tail, FormatFloat(f.Timestamp)...)
	tail = append(tail, '}')

	return &Template{
		head: head,
		tail: tail,
		buf:  make([]byte, 0, len(head)+len(tail)+20),
	}
}

// Hash returns the digest of the template using the specified nonce.
func (t *Template) Hash(nonce uint64) string {
	t.buf = t.buf[:0]
	t.buf = append(t.buf, t.head...)
	t.buf = strconv.AppendUint(t.buf, nonce, 10)
	t.buf = append(t.buf, t.tail...)

	return sum(t.buf)
}

// encode returns a copy of the full document for the specified nonce.
func (t *Template) encode(nonce uint64) []byte {
	doc := make([]byte, 0, len(t.head)+len(t.tail)+20)
	doc = append(doc, t.head...)
	doc = strconv.AppendUint(doc, nonce, 10)
	doc = append(doc, t.tail...)

	return doc
}

// =============================================================================

// FormatFloat renders a float using the shortest representation that round
// trips. Values in fixed notation always carry a fractional part and very
// large or small values switch to exponent notation.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(fixed, '.') {
		fixed += ".0"
	}

	return fixed
}

// =============================================================================

const hexDigits = "0123456789abcdef"

// appendString writes s as a quoted string where every character outside
// of printable ASCII is escaped.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')

	for _, r := range s {
		switch {
		case r == '"':
			dst = append(dst, '\\', '"')
		case r == '\\':
			dst = append(dst, '\\', '\\')
		case r == '\b':
			dst = append(dst, '\\', 'b')
		case r == '\f':
			dst = append(dst, '\\', 'f')
		case r == '\n':
			dst = append(dst, '\\', 'n')
		case r == '\r':
			dst = append(dst, '\\', 'r')
		case r == '\t':
			dst = append(dst, '\\', 't')
		case r >= 0x20 && r <= 0x7e:
			dst = append(dst, byte(r))
		case r < 0x10000:
			dst = appendUnicode(dst, r)
		default:
			r1, r2 := utf16.EncodeRune(r)
			dst = appendUnicode(dst, r1)
			dst = appendUnicode(dst, r2)
		}
	}

	return append(dst, '"')
}

func appendUnicode(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[r>>12&0xf],
		hexDigits[r>>8&0xf],
		hexDigits[r>>4&0xf],
		hexDigits[r&0xf],
	)
}

func sum(data []byte) string {
	hash := sha256.Sum256(data)
	return common.Bytes2Hex(hash[:])
}
