package opencode

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

// EnsureDeployKey returns the ed25519 deploy key at path, generating a fresh
// unencrypted key pair if none exists yet. Keys are written mode 0600.
func EnsureDeployKey(path string) (publicKey string, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		if probeErr := probeNotPassphraseProtected(path); probeErr != nil {
			return "", probeErr
		}
		pub, readErr := os.ReadFile(path + ".pub")
		if readErr != nil {
			return "", apperr.Wrap(apperr.KindState, "reading existing deploy key public half", readErr, nil)
		}
		return string(pub), nil
	} else if !os.IsNotExist(statErr) {
		return "", apperr.Wrap(apperr.KindState, "statting deploy key path", statErr, nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", apperr.Wrap(apperr.KindState, "creating deploy key directory", err, nil)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "generating ed25519 deploy key", err, nil)
	}

	sshPriv, err := ssh.MarshalPrivateKey(priv, "mojoassistant opencode deploy key")
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "marshalling deploy key", err, nil)
	}
	pemBytes := pem.EncodeToMemory(sshPriv)
	if err := os.WriteFile(path, pemBytes, 0600); err != nil {
		return "", apperr.Wrap(apperr.KindState, "writing deploy key private half", err, nil)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "deriving deploy key public half", err, nil)
	}
	pubLine := ssh.MarshalAuthorizedKey(sshPub)
	if err := os.WriteFile(path+".pub", pubLine, 0600); err != nil {
		return "", apperr.Wrap(apperr.KindState, "writing deploy key public half", err, nil)
	}

	return string(pubLine), nil
}

// probeNotPassphraseProtected rejects deploy keys this manager cannot use
// non-interactively: anything whose private half doesn't parse as a bare
// (unencrypted) key.
func probeNotPassphraseProtected(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.KindState, "reading deploy key", err, nil)
	}
	if _, err := ssh.ParsePrivateKey(raw); err != nil {
		if _, ok := err.(*ssh.PassphraseMissingError); ok {
			return apperr.New(apperr.KindValidation, fmt.Sprintf("deploy key at %s is passphrase-protected and cannot be used non-interactively", path), nil)
		}
		return apperr.Wrap(apperr.KindState, "parsing existing deploy key", err, nil)
	}
	return nil
}
