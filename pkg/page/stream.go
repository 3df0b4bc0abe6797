package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xhad/duo/pkg/client"
)

const readBufferSize = 4096

var errStreamBroken = fmt.Errorf("%w: stream interrupted", client.ErrNetwork)

// readStream drains r, calling render with the accumulated text after every
// chunk. A rune split across chunks is held back until it is complete.
// render returning false stops the loop. The accumulated text is returned
// in every case.
func readStream(ctx context.Context, r io.Reader, render func(text string) bool) (string, error) {
	var (
		text    strings.Builder
		pending []byte
	)
	buf := make([]byte, readBufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			cut := completePrefix(data)
			pending = append([]byte(nil), data[cut:]...)

			if cut > 0 {
				text.WriteString(strings.ToValidUTF8(string(data[:cut]), "\uFFFD"))
				if !render(text.String()) {
					return text.String(), context.Canceled
				}
			}
		}

		if errors.Is(err, io.EOF) {
			if len(pending) > 0 {
				text.WriteString(strings.ToValidUTF8(string(pending), "\uFFFD"))
				render(text.String())
			}
			return text.String(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return text.String(), ctxErr
			}
			return text.String(), fmt.Errorf("%w: %v", errStreamBroken, err)
		}
	}
}

// completePrefix returns the length of the longest prefix of data that does
// not end inside a multi-byte rune.
func completePrefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return len(data)
		}
		return i
	}
	return len(data)
}
