package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndParseRoundTrip(t *testing.T) {
	svc := NewService("sigflow", []byte("test-secret"), time.Minute)
	token, err := svc.MintToken("acct-1")
	require.NoError(t, err)

	subject, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", subject)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := NewService("sigflow", []byte("test-secret"), -time.Minute)
	token, err := svc.MintToken("acct-1")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	minter := NewService("sigflow", []byte("secret-a"), time.Minute)
	token, err := minter.MintToken("acct-1")
	require.NoError(t, err)

	verifier := NewService("sigflow", []byte("secret-b"), time.Minute)
	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	minter := NewService("someone-else", []byte("test-secret"), time.Minute)
	token, err := minter.MintToken("acct-1")
	require.NoError(t, err)

	verifier := NewService("sigflow", []byte("test-secret"), time.Minute)
	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := NewService("sigflow", []byte("test-secret"), time.Minute)
	_, err := svc.ParseToken("not.a.token")
	assert.Error(t, err)
}
