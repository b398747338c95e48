// Package qrtoken builds and verifies the signed ticket token printed in a
// registration's QR code.
//
// Wire format: eventId:registrationId:issuedAt:signature, where signature
// is the lowercase hex HMAC-SHA256 of "eventId:registrationId:issuedAt"
// under a server-held key. issuedAt is signed and verified byte for byte
// as it appears in the token.
package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

const (
	separator    = ":"
	fieldCount   = 4
	signatureLen = sha256.Size * 2
	uuidLen      = 36

	// IssuedAtLayout is the layout used when minting tokens. Decoding accepts
	// any RFC 3339 instant.
	IssuedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

var ErrSecretNotConfigured = apperror.Configuration("ticket signing secret is not configured")

// Claims is a decoded token. Fields hold the exact text from the token.
type Claims struct {
	EventID        string
	RegistrationID string
	IssuedAt       string
	Signature      string
}

// IssuedAtTime parses IssuedAt. Decode has already validated it.
func (c Claims) IssuedAtTime() time.Time {
	t, _ := parseIssuedAt(c.IssuedAt)
	return t
}

type Codec struct {
	secret []byte
}

// New returns a codec keyed by secret. An empty secret is a fatal
// configuration error: the codec must never mint unsigned tokens.
func New(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretNotConfigured
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode mints a token for the registration. issuedAt is used verbatim.
func (c *Codec) Encode(eventID, registrationID, issuedAt string) string {
	payload := eventID + separator + registrationID + separator + issuedAt
	return payload + separator + hex.EncodeToString(c.sign(payload))
}

// FormatIssuedAt renders t the way Encode callers should pass it.
func FormatIssuedAt(t time.Time) string {
	return t.UTC().Format(IssuedAtLayout)
}

// Decode splits token into its fields. It reports false for anything that is
// not structurally a ticket token; no signature check happens here.
func Decode(token string) (Claims, bool) {
	parts := strings.Split(token, separator)
	// issuedAt contains colons itself, so the split yields more than four
	// pieces: id, id, the timestamp pieces, signature.
	if len(parts) < fieldCount {
		return Claims{}, false
	}

	claims := Claims{
		EventID:        parts[0],
		RegistrationID: parts[1],
		IssuedAt:       strings.Join(parts[2:len(parts)-1], separator),
		Signature:      parts[len(parts)-1],
	}

	if !isUUID(claims.EventID) || !isUUID(claims.RegistrationID) {
		return Claims{}, false
	}
	if _, err := parseIssuedAt(claims.IssuedAt); err != nil {
		return Claims{}, false
	}
	if !isSignatureHex(claims.Signature) {
		return Claims{}, false
	}
	return claims, true
}

// Verify decodes token and checks its signature in constant time.
func (c *Codec) Verify(token string) bool {
	claims, ok := Decode(token)
	if !ok {
		return false
	}

	got, err := hex.DecodeString(claims.Signature)
	if err != nil {
		return false
	}
	want := c.sign(claims.EventID + separator + claims.RegistrationID + separator + claims.IssuedAt)
	if len(got) != len(want) {
		return false
	}
	return hmac.Equal(got, want)
}

func (c *Codec) sign(payload string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func isUUID(s string) bool {
	if len(s) != uuidLen {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isSignatureHex(s string) bool {
	if len(s) != signatureLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !('0' <= ch && ch <= '9' || 'a' <= ch && ch <= 'f') {
			return false
		}
	}
	return true
}

func parseIssuedAt(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
