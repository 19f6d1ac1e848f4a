package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/slok/rbrowse/internal/conventions"
	"github.com/slok/rbrowse/internal/model"
)

const keyComment = "rbrowse"

// KeyManager handles the rbrowse SSH identity. The identity is used by sessions whose
// profile has no private key of its own.
type KeyManager struct {
	keyDir string
}

// NewKeyManager returns a key manager for an identity directory (e.g. ~/.rbrowse/ssh).
func NewKeyManager(keyDir string) *KeyManager {
	return &KeyManager{keyDir: keyDir}
}

func (m *KeyManager) PrivateKeyPath() string {
	return filepath.Join(m.keyDir, conventions.SSHPrivateKeyFile)
}

func (m *KeyManager) PublicKeyPath() string {
	return filepath.Join(m.keyDir, conventions.SSHPublicKeyFile)
}

// KeysExist is true when both halves of the identity are on disk.
func (m *KeyManager) KeysExist() bool {
	for _, p := range []string{m.PrivateKeyPath(), m.PublicKeyPath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// EnsureKeys returns the public key of the identity, generating it the first time.
func (m *KeyManager) EnsureKeys() (string, error) {
	if m.KeysExist() {
		return m.LoadPublicKey()
	}
	return m.GenerateKeys()
}

// GenerateKeys writes a new Ed25519 identity, replacing the existing one, and returns the
// public key in authorized_keys format.
func (m *KeyManager) GenerateKeys() (string, error) {
	if err := os.MkdirAll(m.keyDir, 0o700); err != nil {
		return "", fmt.Errorf("could not create identity directory: %w: %w", model.ErrLocalIO, err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("could not generate ed25519 key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("could not convert public key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, keyComment)
	if err != nil {
		return "", fmt.Errorf("could not marshal private key: %w", err)
	}

	if err := os.WriteFile(m.PrivateKeyPath(), pem.EncodeToMemory(block), 0o600); err != nil {
		return "", fmt.Errorf("could not write private key: %w: %w", model.ErrLocalIO, err)
	}

	authorized := string(ssh.MarshalAuthorizedKey(sshPub))
	if err := os.WriteFile(m.PublicKeyPath(), []byte(authorized), 0o644); err != nil {
		// Half an identity is worse than none.
		_ = os.Remove(m.PrivateKeyPath())
		return "", fmt.Errorf("could not write public key: %w: %w", model.ErrLocalIO, err)
	}

	return authorized, nil
}

// LoadPublicKey reads the public key in authorized_keys format.
func (m *KeyManager) LoadPublicKey() (string, error) {
	data, err := os.ReadFile(m.PublicKeyPath())
	if err != nil {
		return "", fmt.Errorf("could not read public key: %w: %w", model.ErrLocalIO, err)
	}
	return string(data), nil
}

// LoadPrivateKey reads the PEM private key of the identity.
func (m *KeyManager) LoadPrivateKey() ([]byte, error) {
	return LoadPrivateKeyFile(m.PrivateKeyPath())
}

// LoadPrivateKeyFile reads a PEM private key from any path.
func LoadPrivateKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read private key: %w: %w", model.ErrLocalIO, err)
	}
	return data, nil
}
