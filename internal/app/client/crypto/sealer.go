// Package crypto запечатывает секретные настройки перед отправкой на сервер.
package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// Параметры Argon2id
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = chacha20poly1305.KeySize

	sealedPrefix = "v1:"
	saltContext  = "replikeep/settings/"
)

var (
	ErrEmptyPassphrase = errors.New("passphrase is empty")
	ErrNotSealed       = errors.New("value is not sealed")
	ErrOpenFailed      = errors.New("failed to open sealed value")
)

// Sealer шифрует значения ключом, выведенным из парольной фразы владельца.
// Соль детерминирована владельцем, поэтому все устройства владельца с одной
// фразой получают один и тот же ключ.
type Sealer struct {
	owner string
	key   []byte
}

// NewSealer выводит ключ из парольной фразы.
func NewSealer(passphrase, owner string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	salt := sha256.Sum256([]byte(saltContext + owner))
	key := argon2.IDKey([]byte(passphrase), salt[:16], argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return &Sealer{owner: owner, key: key}, nil
}

// Seal возвращает "v1:" + base64(nonce || ciphertext). Пустая строка
// остаётся пустой.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}

	nonce, err := GenerateRandomBytes(aead.NonceSize())
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(s.owner))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open расшифровывает значение, запечатанное Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrNotSealed
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: value is too short", ErrOpenFailed)
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(s.owner))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	defer ClearMemory(plaintext)

	return string(plaintext), nil
}

// Close затирает ключ.
func (s *Sealer) Close() {
	ClearMemory(s.key)
}
