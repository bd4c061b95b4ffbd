package api

import (
	"encoding/base64"
	"strings"
)

// decodeBase64URL decodes a base64-encoded URL as sent by clients. It
// tolerates standard and URL-safe alphabets, missing padding, and a literal
// space where a '+' was lost to query-string transport.
func decodeBase64URL(input string) (string, error) {
	normalized := strings.TrimSpace(input)
	normalized = strings.ReplaceAll(normalized, " ", "+")
	normalized = strings.ReplaceAll(normalized, "-", "+")
	normalized = strings.ReplaceAll(normalized, "_", "/")

	if pad := len(normalized) % 4; pad != 0 {
		normalized += strings.Repeat("=", 4-pad)
	}

	data, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
