/**
 * @description
 * This package seals and unseals the raw credit provider payload. Encryption is
 * AES-256-CBC with a fresh random 16-byte IV per call; the payload is serialized
 * to canonical JSON before encryption. The ciphertext and IV are always read and
 * written as an atomic pair.
 *
 * The key is an external operational secret. A missing or malformed key is a
 * configuration error surfaced at startup — this package never generates a key,
 * since an ephemeral key would make previously encrypted rows undecryptable after
 * a restart.
 *
 * @dependencies
 * - crypto/aes, crypto/cipher, crypto/rand: Standard Go cryptography.
 * - encoding/json: Canonical payload serialization.
 */

package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the required key length for AES-256.
	KeySize = 32
	// IVSize is the AES block size; one fresh IV is generated per encrypt call.
	IVSize = aes.BlockSize
)

var (
	ErrKeyMissing        = errors.New("encryption key is not configured")
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes (64 hex or base64 characters)")
	ErrInvalidCiphertext = errors.New("ciphertext is malformed")
)

// Key is a parsed 256-bit encryption key.
type Key []byte

// ParseKey decodes a configured key string. It accepts 64 hex characters or a
// base64 encoding of 32 bytes. An empty string is ErrKeyMissing so callers can
// treat absence as a fatal bootstrap condition.
func ParseKey(raw string) (Key, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrKeyMissing
	}
	if decoded, err := hex.DecodeString(trimmed); err == nil && len(decoded) == KeySize {
		return Key(decoded), nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil && len(decoded) == KeySize {
		return Key(decoded), nil
	}
	return nil, ErrInvalidKey
}

// Encrypt serializes the payload to JSON and encrypts it under the key with a
// fresh random IV. Returns the ciphertext and IV as a pair; neither is ever
// returned without the other.
func Encrypt(payload any, key Key) (ciphertext, iv []byte, err error) {
	if len(key) != KeySize {
		return nil, nil, ErrInvalidKey
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// Decrypt is the inverse of Encrypt. It returns (nil, nil) when either input of
// the pair is missing, matching the storage contract that the two columns are
// both present or both absent.
func Decrypt(ciphertext, iv []byte, key Key) (json.RawMessage, error) {
	if len(ciphertext) == 0 || len(iv) == 0 {
		return nil, nil
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(iv) != IVSize || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, ErrInvalidCiphertext
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidCiphertext
		}
	}
	return data[:len(data)-padding], nil
}
