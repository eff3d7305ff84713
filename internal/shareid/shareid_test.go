package shareid

import (
	"errors"
	"strings"
	"testing"
)

const testSecret = "test-secret"

func testCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := New(secret)
	if err != nil {
		t.Fatalf("New(%q): %v", secret, err)
	}
	return c
}

func TestNew_EmptySecret(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestEncode_KnownTokens(t *testing.T) {
	c := testCodec(t, testSecret)

	tests := []struct {
		plaintext string
		want      string
	}{
		{"1", "MXRlc3Qtc2VjcmV0"},
		{"crtp-co", "Y3J0cC1jb3Rlc3Qtc2VjcmV0"},
		{"", "dGVzdC1zZWNyZXQ"},
		{"hello world", "aGVsbG8lMjB3b3JsZHRlc3Qtc2VjcmV0"},
		{"café", "Y2FmJUMzJUE5dGVzdC1zZWNyZXQ"},
		{"a+b/c=d", "YSUyQmIlMkZjJTNEZHRlc3Qtc2VjcmV0"},
		{"100%", "MTAwJTI1dGVzdC1zZWNyZXQ"},
	}

	for _, tt := range tests {
		t.Run(tt.plaintext, func(t *testing.T) {
			got := c.Encode(tt.plaintext)
			if got != tt.want {
				t.Errorf("Encode(%q) = %q, want %q", tt.plaintext, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c := testCodec(t, testSecret)

	inputs := []string{
		"1",
		"42",
		"crtp-co",
		"",
		" ",
		"hello world",
		"café",
		"日本語",
		"emoji 🚀 ok",
		"a+b/c=d",
		"100%",
		"%41",
		"!'()*~._-",
		"?query=1&x=y#frag",
		"line\nbreak\ttab",
		`quote"back\slash`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			token := c.Encode(in)
			if token == "" {
				t.Fatalf("Encode(%q) returned empty token", in)
			}
			got, err := c.Decode(token)
			if err != nil {
				t.Fatalf("Decode(%q): %v", token, err)
			}
			if got != in {
				t.Errorf("round trip = %q, want %q", got, in)
			}
		})
	}
}

func TestRoundTrip_AllPrintableASCII(t *testing.T) {
	c := testCodec(t, testSecret)

	for b := byte(0x20); b < 0x7f; b++ {
		in := "id" + string(b) + "x"
		got, err := c.Decode(c.Encode(in))
		if err != nil || got != in {
			t.Errorf("round trip of %q = %q, %v", in, got, err)
		}
	}
}

func TestEncode_URLSafeAlphabet(t *testing.T) {
	c := testCodec(t, "?>~secret~>?")

	for _, in := range []string{"1", "aaa", "crtp-co", "日本", "~~~~", "???", ">>>"} {
		token := c.Encode(in)
		if strings.ContainsAny(token, "+/=") {
			t.Errorf("Encode(%q) = %q contains URL-unsafe characters", in, token)
		}
	}
}

func TestEncode_InvalidUTF8(t *testing.T) {
	c := testCodec(t, testSecret)

	if got := c.Encode("bad\xff"); got != "" {
		t.Errorf("Encode(invalid utf-8) = %q, want empty", got)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	c := testCodec(t, testSecret)

	if a, b := c.Encode("7"), c.Encode("7"); a != b {
		t.Errorf("Encode not deterministic: %q vs %q", a, b)
	}
}

func TestDecode_SubstitutedCharacters(t *testing.T) {
	c := testCodec(t, "?>~secret~>?")

	// '-' in the middle, '_' at the end.
	token := c.Encode("aaa")
	if token != "YWFhPz5-c2VjcmV0fj4_" {
		t.Fatalf("Encode(aaa) = %q", token)
	}
	got, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "aaa" {
		t.Errorf("Decode = %q, want %q", got, "aaa")
	}

	// Clients that restore padding still decode.
	got, err = c.Decode(token + "=")
	if err != nil || got != "aaa" {
		t.Errorf("Decode(padded) = %q, %v", got, err)
	}
}

func TestDecode_SubstitutedCharacterAtStart(t *testing.T) {
	// The escaped plaintext is always ASCII, so a token can only start with
	// '-' or '_' when the plaintext is empty and the secret's first byte is
	// 0xF8 or above.
	tests := []struct {
		secret string
		want   string
	}{
		{"\xf8k", "-Gs"},
		{"\xfck", "_Gs"},
	}

	for _, tt := range tests {
		c := testCodec(t, tt.secret)

		token := c.Encode("")
		if token != tt.want {
			t.Fatalf("Encode(\"\") with secret %q = %q, want %q", tt.secret, token, tt.want)
		}
		got, err := c.Decode(token)
		if err != nil {
			t.Fatalf("Decode(%q): %v", token, err)
		}
		if got != "" {
			t.Errorf("Decode(%q) = %q, want empty", token, got)
		}
	}
}

func TestDecode_Garbage(t *testing.T) {
	c := testCodec(t, testSecret)

	tokens := []string{
		"",
		"1",
		"!!!!",
		"-",
		"_",
		"-abc",
		"ab-c_d",
		"abc_",
		"====",
		"a=b",
		"Zm9v",                     // "foo" without the secret
		"dGVzdC1zZWNyZX",           // truncated
		"JXp6dGVzdC1zZWNyZXQ",      // "%zz" + secret
		"_-_-_-_-",                 // high bytes, invalid UTF-8
		"/+/+",                     // standard alphabet, not URL alphabet
		strings.Repeat("A", 4097),  // long junk
		"MXRlc3Qtc2VjcmV0MXRlc3Q", // token with trailing junk
		"\x00\x01\x02",
		"日本語",
	}

	for _, tok := range tokens {
		t.Run(tok, func(t *testing.T) {
			got, err := c.Decode(tok)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidToken", tok, err)
			}
			if got != "" {
				t.Errorf("Decode(%q) = %q, want empty", tok, got)
			}
		})
	}
}

func TestDecode_EmptyPlaintextToken(t *testing.T) {
	c := testCodec(t, testSecret)

	got, err := c.Decode(c.Encode(""))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "" {
		t.Errorf("Decode = %q, want empty", got)
	}
}

func TestDecode_TwiceFailsGracefully(t *testing.T) {
	c := testCodec(t, testSecret)

	once, err := c.Decode(c.Encode("1"))
	if err != nil || once != "1" {
		t.Fatalf("first Decode = %q, %v", once, err)
	}

	twice, err := c.Decode(once)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second Decode error = %v, want ErrInvalidToken", err)
	}
	if twice != "" {
		t.Errorf("second Decode = %q, want empty", twice)
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	a := testCodec(t, "secret-a")
	b := testCodec(t, "secret-b")

	if _, err := b.Decode(a.Encode("1")); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign token, got %v", err)
	}
}
