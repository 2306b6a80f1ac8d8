package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return NewService(NewStaticStore("whk_test", string(hash)))
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t, "s3cret")

	acct, err := svc.Authenticate(context.Background(), "whk_test.s3cret")
	require.NoError(t, err)
	assert.Equal(t, "whk_test", acct.KeyID)
	assert.True(t, acct.Active)
}

func TestAuthenticateFailures(t *testing.T) {
	svc := newTestService(t, "s3cret")
	cases := []struct {
		name string
		key  string
	}{
		{"wrong secret", "whk_test.wrong"},
		{"unknown key id", "whk_other.s3cret"},
		{"no separator", "whk_tests3cret"},
		{"empty secret", "whk_test."},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestSecretWithDotAuthenticates(t *testing.T) {
	// Only the first dot separates key id from secret.
	svc := newTestService(t, "part.one")
	_, err := svc.Authenticate(context.Background(), "whk_test.part.one")
	assert.NoError(t, err)
}
