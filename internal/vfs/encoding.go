package vfs

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
)

// Encoding represents a character encoding detected from file content.
type Encoding string

const (
	// EncodingUTF8 is BOM-less UTF-8, the default for script files.
	EncodingUTF8 Encoding = "utf-8"

	// EncodingUTF8BOM is UTF-8 with a byte-order mark.
	EncodingUTF8BOM Encoding = "utf-8-bom"

	// EncodingUTF16LE is UTF-16 Little Endian (BOM required).
	EncodingUTF16LE Encoding = "utf-16le"

	// EncodingUTF16BE is UTF-16 Big Endian (BOM required).
	EncodingUTF16BE Encoding = "utf-16be"
)

// BOM (Byte Order Mark) prefixes.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding sniffs the BOM of file content. Content with no BOM is
// treated as BOM-less UTF-8 regardless of what the bytes actually decode as;
// byte-order-mark detection is the only signal used.
func DetectEncoding(content []byte) Encoding {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return EncodingUTF8BOM
	case bytes.HasPrefix(content, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(content, bomUTF16BE):
		return EncodingUTF16BE
	default:
		return EncodingUTF8
	}
}

// StripBOM removes the BOM from content if present.
func StripBOM(content []byte) []byte {
	switch DetectEncoding(content) {
	case EncodingUTF8BOM:
		return content[3:]
	case EncodingUTF16LE, EncodingUTF16BE:
		return content[2:]
	default:
		return content
	}
}

// DecodeText decodes raw file bytes into a UTF-8 string using the BOM-derived
// encoding, defaulting to BOM-less UTF-8. The returned encoding records what
// was detected so a writer could round-trip the file later.
func DecodeText(content []byte) (string, Encoding) {
	enc := DetectEncoding(content)
	body := StripBOM(content)

	switch enc {
	case EncodingUTF16LE:
		return decodeUTF16(body, true), enc
	case EncodingUTF16BE:
		return decodeUTF16(body, false), enc
	default:
		return string(body), enc
	}
}

// decodeUTF16 converts UTF-16 bytes to a UTF-8 string.
// A trailing odd byte is dropped rather than rejected; scripts saved by
// broken tools should still open.
func decodeUTF16(b []byte, littleEndian bool) string {
	u16 := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if littleEndian {
			u16 = append(u16, uint16(b[i])|uint16(b[i+1])<<8)
		} else {
			u16 = append(u16, uint16(b[i])<<8|uint16(b[i+1]))
		}
	}

	runes := utf16.Decode(u16)
	buf := make([]byte, 0, len(runes)*utf8.UTFMax)
	for _, r := range runes {
		buf = utf8.AppendRune(buf, r)
	}
	return string(buf)
}
