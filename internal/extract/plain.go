package extract

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes text files: a leading BOM is dropped, invalid UTF-8 becomes U+FFFD and
// CRLF or bare CR line endings become \n.
func extractPlain(content []byte) (string, error) {
	s := strings.ToValidUTF8(string(bytes.TrimPrefix(content, utf8BOM)), "\ufffd")
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s), nil
}
