// pkg/router/encoding.go
package router

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText turns arbitrary file bytes into text. The cascade is
// byte-order-mark sniff, strict UTF-8, Windows-1252, then Latin-1; it never
// fails, and the returned name records which step decoded the content so
// the run metrics can report it.
func DecodeText(b []byte) (string, string) {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return string(b[len(bomUTF8):]), "utf-8-bom"
	case bytes.HasPrefix(b, bomUTF16LE), bytes.HasPrefix(b, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out), "utf-16"
		}
		// fall through to the single-byte path on a torn UTF-16 stream
	}

	if utf8.Valid(b) {
		return string(b), "utf-8"
	}

	if out, err := charmap.Windows1252.NewDecoder().Bytes(b); err == nil {
		s := string(out)
		// Windows-1252 leaves a handful of undefined code points; their
		// presence means the guess was wrong, so fall back to Latin-1 which
		// maps every byte.
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s, "windows-1252"
		}
	}

	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(out), "latin-1"
}
