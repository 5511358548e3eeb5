// Package token issues and verifies the device-bound bearer tokens used for
// authentication. A token is three dot-joined base64url segments: the device
// id in decimal, the issuance timestamp, and an HMAC signature keyed by the
// owning user's current password hash. Because the key is the current hash,
// rotating the password revokes every previously issued token for that user
// without any server-side token storage.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/shared"
)

var b64 = base64.RawURLEncoding

// Issue signs deviceID with the owner's current password hash and returns the
// bearer token, embedding the issuance time.
func Issue(deviceID int64, passwordHash string) string {
	payload := b64.EncodeToString([]byte(strconv.FormatInt(deviceID, 10)))
	ts := b64.EncodeToString([]byte(strconv.FormatInt(time.Now().Unix(), 10)))
	signed := payload + "." + ts
	return signed + "." + sign(signed, passwordHash)
}

// DeviceID extracts the claimed device id from the first token segment. It
// deliberately does not verify the signature: the caller needs the id first to
// look up which password hash to verify against.
func DeviceID(tok string) (int64, error) {
	payload, _, _ := strings.Cut(tok, ".")
	raw, err := b64.DecodeString(payload)
	if err != nil {
		return 0, shared.ErrInvalidToken
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidToken
	}
	return id, nil
}

// Verify reports whether the token's signature was produced with passwordHash.
func Verify(tok, passwordHash string) bool {
	idx := strings.LastIndexByte(tok, '.')
	if idx <= 0 {
		return false
	}
	signed, sig := tok[:idx], tok[idx+1:]
	if strings.Count(signed, ".") != 1 {
		return false
	}
	want, err := b64.DecodeString(sig)
	if err != nil {
		return false
	}
	got, err := b64.DecodeString(sign(signed, passwordHash))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

// IssuedAt returns the issuance time embedded in the token.
func IssuedAt(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return time.Time{}, shared.ErrInvalidToken
	}
	raw, err := b64.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, shared.ErrInvalidToken
	}
	secs, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, shared.ErrInvalidToken
	}
	return time.Unix(secs, 0), nil
}

func sign(signed, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(signed))
	return b64.EncodeToString(mac.Sum(nil))
}
