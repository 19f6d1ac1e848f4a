package ssh_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/ssh"
)

func TestKeyManagerGenerateKeys(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	km := ssh.NewKeyManager(filepath.Join(t.TempDir(), "ssh"))
	assert.False(km.KeysExist())

	pub, err := km.GenerateKeys()
	require.NoError(err)
	assert.True(strings.HasPrefix(pub, "ssh-ed25519 "))
	assert.True(km.KeysExist())

	privInfo, err := os.Stat(km.PrivateKeyPath())
	require.NoError(err)
	assert.Equal(os.FileMode(0o600), privInfo.Mode().Perm())
	pubInfo, err := os.Stat(km.PublicKeyPath())
	require.NoError(err)
	assert.Equal(os.FileMode(0o644), pubInfo.Mode().Perm())

	// The private key is usable and matches the public one.
	privPEM, err := km.LoadPrivateKey()
	require.NoError(err)
	signer, err := gossh.ParsePrivateKey(privPEM)
	require.NoError(err)
	assert.Equal(pub, string(gossh.MarshalAuthorizedKey(signer.PublicKey())))
}

func TestKeyManagerEnsureKeys(t *testing.T) {
	tests := map[string]struct {
		force     bool
		expSameAs bool
	}{
		"Ensuring again should keep the identity.": {expSameAs: true},
		"Generating again should replace it.":      {force: true, expSameAs: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			km := ssh.NewKeyManager(filepath.Join(t.TempDir(), "ssh"))

			first, err := km.EnsureKeys()
			require.NoError(t, err)

			var second string
			if test.force {
				second, err = km.GenerateKeys()
			} else {
				second, err = km.EnsureKeys()
			}
			require.NoError(t, err)

			assert.Equal(t, test.expSameAs, first == second)
		})
	}
}

func TestKeyManagerKeyPaths(t *testing.T) {
	km := ssh.NewKeyManager("/home/user/.rbrowse/ssh")
	assert.Equal(t, "/home/user/.rbrowse/ssh/id_ed25519", km.PrivateKeyPath())
	assert.Equal(t, "/home/user/.rbrowse/ssh/id_ed25519.pub", km.PublicKeyPath())
}

func TestLoadPrivateKeyFileMissing(t *testing.T) {
	_, err := ssh.LoadPrivateKeyFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, model.ErrLocalIO)
}
