package table

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

type textEncoding struct {
	name   string
	decode func([]byte) (string, error)
}

var (
	encUTF8    = textEncoding{name: "utf-8", decode: decodeUTF8}
	encUTF8Sig = textEncoding{name: "utf-8-sig", decode: func(b []byte) (string, error) {
		return decodeUTF8(bytes.TrimPrefix(b, bomUTF8))
	}}
	encUTF16   = textEncoding{name: "utf-16", decode: decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), true)}
	encUTF16LE = textEncoding{name: "utf-16le", decode: decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), true)}
	encUTF16BE = textEncoding{name: "utf-16be", decode: decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), true)}
	encLatin1  = textEncoding{name: "latin1", decode: decodeWith(charmap.ISO8859_1, false)}
)

// encodingOrder returns the encodings to try for data. A UTF-16 byte-order
// mark moves the UTF-16 variants to the front.
func encodingOrder(data []byte) []textEncoding {
	switch {
	case bytes.HasPrefix(data, bomUTF16LE):
		return []textEncoding{encUTF16, encUTF16LE, encUTF16BE, encUTF8, encUTF8Sig, encLatin1}
	case bytes.HasPrefix(data, bomUTF16BE):
		return []textEncoding{encUTF16, encUTF16BE, encUTF16LE, encUTF8, encUTF8Sig, encLatin1}
	default:
		return []textEncoding{encUTF8, encUTF8Sig, encUTF16, encUTF16LE, encUTF16BE, encLatin1}
	}
}

// decodeUTF8 rejects NUL bytes: they are valid UTF-8, but text export
// never contains them and UTF-16 without a byte-order mark is full of them.
func decodeUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", eris.New("invalid utf-8 byte sequence")
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", eris.New("unexpected NUL byte in utf-8 text")
	}
	return string(b), nil
}

// decodeWith runs an x/text decoder. The decoders substitute U+FFFD for
// malformed input instead of failing, so strict decoders treat any
// replacement character in the output as a decode error.
func decodeWith(enc encoding.Encoding, strict bool) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		if strict && len(b)%2 != 0 {
			return "", eris.New("truncated utf-16 data")
		}
		out, _, err := transform.Bytes(enc.NewDecoder(), b)
		if err != nil {
			return "", err
		}
		s := string(out)
		if strict && strings.ContainsRune(s, utf8.RuneError) {
			return "", eris.New("invalid code unit sequence")
		}
		if strict && !strings.ContainsAny(s, "\n,;\t|") {
			// Byte-oriented text read as UTF-16 decodes to CJK noise with
			// no line or field separators at all.
			return "", eris.New("no line or field separators in decoded text")
		}
		return s, nil
	}
}
