package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Secret1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	require.NoError(t, VerifyPassword("Secret1", hash))
	require.ErrorIs(t, VerifyPassword("wrong", hash), ErrPasswordMismatch)
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("Secret1")
	require.NoError(t, err)
	h2, err := HashPassword("Secret1")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.NoError(t, VerifyPassword("Secret1", h1))
	require.NoError(t, VerifyPassword("Secret1", h2))
}

func TestVerifyPasswordRejectsMangledHash(t *testing.T) {
	hash, err := HashPassword("Secret1")
	require.NoError(t, err)

	require.Error(t, VerifyPassword("Secret1", "not-a-phc-string"))
	require.Error(t, VerifyPassword("Secret1", hash[:len(hash)-4]))
}
