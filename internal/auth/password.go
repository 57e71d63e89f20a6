package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds in bytes. bcrypt ignores everything past byte 72,
// so longer passwords are rejected rather than silently truncated.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// defaultCost is the bcrypt work factor, roughly 250ms per hash on a
// modern server. Tune it so hashing takes 200 to 300ms on production
// hardware.
const defaultCost = 12

var (
	ErrPasswordMismatch = errors.New("auth: invalid password")
	ErrPasswordLength   = fmt.Errorf("auth: password must be %d to %d bytes", MinPasswordLen, MaxPasswordLen)
)

// PasswordService hashes and verifies user passwords with bcrypt.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
//
// The salt is embedded in the hash, so the users table needs a single
// password_hash column.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Tests in other packages pass bcrypt.MinCost (4) to skip the ~250ms
// overhead of cost 12. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

// CheckLength reports ErrPasswordLength when plaintext is outside
// [MinPasswordLen, MaxPasswordLen].
func CheckLength(plaintext string) error {
	if len(plaintext) < MinPasswordLen || len(plaintext) > MaxPasswordLen {
		return ErrPasswordLength
	}
	return nil
}

// Hash hashes plaintext with bcrypt. The result is stored as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := CheckLength(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it does not. The comparison is constant-time.
//
// Accounts created through GitHub have an empty hash and never match.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
