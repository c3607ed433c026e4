package fonepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Field is one key/value pair of a signed payload.
type Field struct {
	Key   string
	Value any
}

// Fields is signed in the order given. The gateway computes the same digest
// over the same order, so each call site owns its ordering.
type Fields []Field

func (f Fields) String() string {
	parts := make([]string, 0, len(f))
	for _, field := range f {
		parts = append(parts, field.Key+"="+formatValue(field.Value))
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) digest(fields Fields) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fields.String()))
	return mac.Sum(nil)
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical k=v string.
func (s *Signer) Sign(fields Fields) string {
	return hex.EncodeToString(s.digest(fields))
}

// Verify never panics; an empty secret, an empty signature or malformed hex
// all count as a mismatch.
func (s *Signer) Verify(fields Fields, provided string) bool {
	if len(s.secret) == 0 || provided == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(provided))
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.digest(fields))
}
