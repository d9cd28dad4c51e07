package parser

import (
	"io"

	"golang.org/x/net/html/charset"
)

// NewUTF8Reader converts body to UTF-8. The encoding is taken from contentType
// when it names a charset, then from BOMs and <meta> declarations, then guessed.
// Platform pages served in Big5 or GBK come out as UTF-8; UTF-8 input passes through.
func NewUTF8Reader(body io.Reader, contentType string) (io.Reader, error) {
	return charset.NewReader(body, contentType)
}
