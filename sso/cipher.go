package sso

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// Cipher seals SSO ids with AES-256-GCM under a key derived from the server secret and the user id
type Cipher struct {
	secret []byte
}

func NewCipher(serverSecret string) (*Cipher, error) {
	if serverSecret == "" {
		return nil, fmt.Errorf("[sso NewCipher] server secret is required")
	}
	return &Cipher{secret: []byte(serverSecret)}, nil
}

// Seal encrypts plaintext for userID and returns a URL-safe string
func (c *Cipher) Seal(userID, plaintext string) (string, error) {
	aead, err := c.aead(userID)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(userID))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same userID
func (c *Cipher) Open(userID, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}
	aead, err := c.aead(userID)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("sealed value too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(userID))
	if err != nil {
		return "", fmt.Errorf("failed to open sealed value: %w", err)
	}
	return string(plaintext), nil
}

func (c *Cipher) aead(userID string) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.secret, nil, []byte("sso-id:"+userID)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
