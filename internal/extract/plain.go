package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as text. A UTF-8 BOM is dropped and invalid sequences
// become the replacement character.
func extractPlain(content []byte) (string, error) {
	s := strings.TrimPrefix(string(content), "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return s, nil
}
