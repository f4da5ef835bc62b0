// Package seal implements the payload encryption schemes a transfer may declare.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"groundlink/pkg/models"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the key length shared by both schemes.
const KeySize = 32

var (
	// ErrUnsupportedScheme is returned for an unknown scheme label.
	ErrUnsupportedScheme = errors.New("unsupported encryption scheme")

	// ErrInvalidKey is returned when the key is not KeySize bytes long.
	ErrInvalidKey = errors.New("invalid key size")

	// ErrMalformed is returned when sealed data is too short to hold a nonce.
	ErrMalformed = errors.New("malformed sealed payload")

	// ErrAuthentication is returned when a sealed payload fails authentication.
	ErrAuthentication = errors.New("payload authentication failed")
)

// Sealer holds one AEAD per supported scheme, all keyed with the same key.
type Sealer struct {
	aeads map[models.Scheme]cipher.AEAD
}

// New builds a Sealer from a 32 byte key.
func New(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	chacha, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return &Sealer{aeads: map[models.Scheme]cipher.AEAD{
		models.SchemeAES256:           gcm,
		models.SchemeChaCha20Poly1305: chacha,
	}}, nil
}

// NewRandom builds a Sealer with a fresh random key.
func NewRandom() (*Sealer, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return New(key)
}

func (s *Sealer) aead(scheme models.Scheme) (cipher.AEAD, error) {
	aead, ok := s.aeads[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return aead, nil
}

// Seal encrypts plaintext bound to aad and returns nonce || ciphertext.
func (s *Sealer) Seal(scheme models.Scheme, plaintext, aad []byte) ([]byte, error) {
	aead, err := s.aead(scheme)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts data produced by Seal.
func (s *Sealer) Open(scheme models.Scheme, sealed, aad []byte) ([]byte, error) {
	aead, err := s.aead(scheme)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return plaintext, nil
}

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
