// Package shareid turns catalog keys into tokens that can be embedded in a
// shareable URL path segment, and back.
//
// This is obfuscation, NOT cryptography. The secret is a deployment-wide
// constant appended to the plaintext before base64 encoding, so anyone who
// learns it can reverse every token. It keeps raw sequential keys out of
// URLs and nothing more. Do not use it to decide who may see what.
package shareid

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptySecret  = errors.New("share secret must not be empty")
	ErrInvalidToken = errors.New("invalid share token")
)

// componentEscaper converts url.QueryEscape output into URI-component form:
// spaces as %20 and !'()* left literal.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Codec encodes and decodes share tokens with a fixed secret suffix.
type Codec struct {
	secret string
}

// New creates a Codec. The secret is required.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Codec{secret: secret}, nil
}

// Encode returns the URL-safe token for plaintext, or "" if plaintext is not
// valid UTF-8. Output only contains [A-Za-z0-9_-].
func (c *Codec) Encode(plaintext string) string {
	if !utf8.ValidString(plaintext) {
		return ""
	}
	raw := componentEscaper.Replace(url.QueryEscape(plaintext)) + c.secret
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode reverses Encode. Any token that was not produced by this codec's
// secret returns "" and ErrInvalidToken.
func (c *Codec) Decode(token string) (string, error) {
	// Tolerate padded tokens from clients that re-pad before sending.
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return "", ErrInvalidToken
	}

	raw := string(b)
	if !strings.HasSuffix(raw, c.secret) {
		return "", ErrInvalidToken
	}
	escaped := raw[:len(raw)-len(c.secret)]

	// PathUnescape keeps a literal '+' as '+', matching URI-component rules.
	plaintext, err := url.PathUnescape(escaped)
	if err != nil || !utf8.ValidString(plaintext) {
		return "", ErrInvalidToken
	}
	return plaintext, nil
}
