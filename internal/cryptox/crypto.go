// Package cryptox implements the client-side cryptography: AES-GCM for
// file content and names, argon2id for the password-derived master key,
// and NaCl box sealing for per-recipient key wrapping. The server never
// runs any of this.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/box"
)

const (
	keySize   = 32
	nonceSize = 12
	saltSize  = 16
)

var ErrDecryptionFailed = errors.New("decryption failed")

// MakeContentKey generates a fresh random 256-bit content key. One key
// per file, never reused.
func MakeContentKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveMasterKey stretches a password into a 256-bit key with argon2id.
func DeriveMasterKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// EncryptBytes encrypts plaintext with AES-GCM under key. A fresh
// 12-byte nonce is generated per call and returned alongside.
func EncryptBytes(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptBytes reverses EncryptBytes. A wrong key or tampered ciphertext
// yields ErrDecryptionFailed, never partial plaintext.
func DecryptBytes(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// GenerateKeyPair creates a curve25519 key pair for key wrapping.
func GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pub[:], priv[:], nil
}

// WrapKey seals a content key to a recipient's public key. Anyone holding
// the public key can produce a wrapped entry; only the private key opens it.
func WrapKey(contentKey, recipientPublicKey []byte) ([]byte, error) {
	pub, err := toKeyArray(recipientPublicKey)
	if err != nil {
		return nil, err
	}
	return box.SealAnonymous(nil, contentKey, pub, rand.Reader)
}

// UnwrapKey opens a wrapped content key with the recipient's key pair.
func UnwrapKey(wrapped, publicKey, privateKey []byte) ([]byte, error) {
	pub, err := toKeyArray(publicKey)
	if err != nil {
		return nil, err
	}
	priv, err := toKeyArray(privateKey)
	if err != nil {
		return nil, err
	}

	contentKey, ok := box.OpenAnonymous(nil, wrapped, pub, priv)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return contentKey, nil
}

// WrapPrivateKey encrypts the private key under a password-derived master
// key. The blob layout is salt || ciphertext so login only needs the
// password and the published record.
func WrapPrivateKey(privateKey, password []byte) (blob, nonce []byte, err error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}

	masterKey := DeriveMasterKey(password, salt)
	ciphertext, nonce, err := EncryptBytes(privateKey, masterKey)
	if err != nil {
		return nil, nil, err
	}

	return append(salt, ciphertext...), nonce, nil
}

// UnwrapPrivateKey reverses WrapPrivateKey.
func UnwrapPrivateKey(blob, nonce, password []byte) ([]byte, error) {
	if len(blob) <= saltSize {
		return nil, fmt.Errorf("wrapped private key too short: %d bytes", len(blob))
	}
	masterKey := DeriveMasterKey(password, blob[:saltSize])
	return DecryptBytes(blob[saltSize:], nonce, masterKey)
}

func toKeyArray(b []byte) (*[32]byte, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("invalid key length: %d", len(b))
	}
	var arr [32]byte
	copy(arr[:], b)
	return &arr, nil
}
