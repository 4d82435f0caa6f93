// Package signing generates and verifies HMAC-signed download links for
// session videos. Links carry the session id, an expiry and a signature.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("link expired")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature for a session id and expiry.
func (s *Signer) Sign(sessionID string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "video:%s:%d", sessionID, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// URL builds a signed download link for base, valid for ttl. The query
// carries session, expires and signature.
func (s *Signer) URL(base, sessionID string, ttl time.Duration) (string, time.Time) {
	expires := s.now().Add(ttl).UTC().Truncate(time.Second)
	q := url.Values{}
	q.Set("session", sessionID)
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("signature", s.Sign(sessionID, expires.Unix()))
	return base + "?" + q.Encode(), expires
}

// Verify checks signature and expiry for a download request.
func (s *Signer) Verify(sessionID, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	// hmac.Equal compares in constant time.
	if !hmac.Equal([]byte(s.Sign(sessionID, exp)), []byte(signature)) {
		return ErrInvalidSignature
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}
