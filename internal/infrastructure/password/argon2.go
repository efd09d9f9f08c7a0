package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	defaultArgon2Memory  uint32 = 64 * 1024
	defaultArgon2Threads uint8  = 4
	argon2KeyLen         uint32 = 32
	argon2SaltLen               = 16
)

// Argon2Hasher hashes with argon2id and encodes the result in PHC form:
// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

type Argon2Option func(*Argon2Hasher)

// WithArgon2Memory sets the memory cost in KiB.
func WithArgon2Memory(kib uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.memory = kib }
}

func WithArgon2Threads(n uint8) Argon2Option {
	return func(h *Argon2Hasher) { h.threads = n }
}

// NewArgon2Hasher uses workFactor as the argon2 time cost.
func NewArgon2Hasher(workFactor int, opts ...Argon2Option) (*Argon2Hasher, error) {
	if workFactor < 1 || workFactor > 64 {
		return nil, &domain.ConfigurationError{
			Key:    WorkFactorKey,
			Reason: fmt.Sprintf("argon2id time cost must be between 1 and 64, got %d", workFactor),
		}
	}
	h := &Argon2Hasher{
		time:    uint32(workFactor),
		memory:  defaultArgon2Memory,
		threads: defaultArgon2Threads,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key with the parameters embedded in encoded and
// compares in constant time. A malformed hash never matches.
func (h *Argon2Hasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != AlgorithmArgon2id {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	key := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}
