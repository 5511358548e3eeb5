package token_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/token"
)

func TestRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 42, 9_007_199_254_740_993, 1 << 62} {
		tok := token.Issue(id, "hash")
		got, err := token.DeviceID(tok)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestVerifyAcceptsOnlyMatchingHash(t *testing.T) {
	tok := token.Issue(7, "current-hash")

	// A token is valid iff its signature verifies under the current hash;
	// changing the password therefore revokes it.
	assert.True(t, token.Verify(tok, "current-hash"))
	assert.False(t, token.Verify(tok, "rotated-hash"))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	a := token.Issue(1, "hash")
	b := token.Issue(2, "hash")

	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")
	forged := partsB[0] + "." + partsA[1] + "." + partsA[2]
	assert.False(t, token.Verify(forged, "hash"))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, tok := range []string{"", ".", "..", "abc", "a.b", "a.b.c.d", "!!!.b.c"} {
		assert.False(t, token.Verify(tok, "hash"), "token %q", tok)
	}
}

func TestDeviceIDMalformed(t *testing.T) {
	for _, tok := range []string{"", "%%%.sig", "bm90LWEtbnVtYmVy.sig"} {
		_, err := token.DeviceID(tok)
		require.Error(t, err, "token %q", tok)
		var appErr *shared.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, shared.ErrInvalidToken, appErr)
	}
}

func TestDeviceIDDoesNotRequireSignature(t *testing.T) {
	tok := token.Issue(99, "hash")
	mangled := tok[:strings.LastIndexByte(tok, '.')] + ".bogus"

	id, err := token.DeviceID(mangled)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
	assert.False(t, token.Verify(mangled, "hash"))
}

func TestIssuedAt(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	tok := token.Issue(5, "hash")
	at, err := token.IssuedAt(tok)
	require.NoError(t, err)
	assert.False(t, at.Before(before))
	assert.False(t, at.After(time.Now().Add(time.Second)))

	_, err = token.IssuedAt("only.two")
	assert.Error(t, err)
}
