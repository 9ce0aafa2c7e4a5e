package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// ErrMalformed is returned when a sealed value is not valid hex or too short
var ErrMalformed = errors.New("sealed value is malformed")

// Cipher seals short secrets with AES-GCM. Output is hex(nonce || ciphertext).
type Cipher struct {
	gcm cipher.AEAD
}

// New derives the AES key from secret
func New(secret string) (*Cipher, error) {
	block, err := aes.NewCipher([]byte(createHash(secret)))
	if err != nil {
		return nil, errors.Wrap(err, "could not create block cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "could not create gcm")
	}

	return &Cipher{gcm: gcm}, nil
}

// Encrypt seals data with a random nonce
func (c *Cipher) Encrypt(data string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "could not read nonce")
	}

	return hex.EncodeToString(c.gcm.Seal(nonce, nonce, []byte(data), nil)), nil
}

// Decrypt opens a value produced by Encrypt
func (c *Cipher) Decrypt(data string) (string, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return "", errors.Wrap(ErrMalformed, err.Error())
	}

	nonceSize := c.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrMalformed
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "could not open sealed value")
	}

	return string(plaintext), nil
}

// createHash turns any secret into a 32 byte key
func createHash(key string) string {
	hasher := md5.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}
