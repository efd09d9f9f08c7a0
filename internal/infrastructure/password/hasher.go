// Package password hashes and verifies user passwords.
//
// Two algorithms are supported. bcrypt is the default and takes the work
// factor as its cost. argon2id takes the work factor as its iteration count.
package password

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	// WorkFactorKey is the configuration key the work factor is read from.
	WorkFactorKey = "BCRYPT_WORK_FACTOR"
)

// ParseWorkFactor converts the raw configured work factor into a positive
// integer. An empty or non-numeric value is a configuration error.
func ParseWorkFactor(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &domain.ConfigurationError{Key: WorkFactorKey, Reason: "is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ConfigurationError{Key: WorkFactorKey, Reason: "must be numeric", Err: err}
	}
	if n <= 0 {
		return 0, &domain.ConfigurationError{Key: WorkFactorKey, Reason: fmt.Sprintf("must be positive, got %d", n)}
	}
	return n, nil
}

// New builds the hasher for algorithm. An empty algorithm selects bcrypt.
func New(algorithm string, workFactor int) (ports.PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmBcrypt:
		return NewBcryptHasher(workFactor)
	case AlgorithmArgon2id:
		return NewArgon2Hasher(workFactor)
	default:
		return nil, &domain.ConfigurationError{
			Key:    "HASH_ALGORITHM",
			Reason: fmt.Sprintf("unsupported algorithm %q (use bcrypt or argon2id)", algorithm),
		}
	}
}
