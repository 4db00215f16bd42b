package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Sign-in code policy.
const (
	CodeDigits      = 6
	CodeTTL         = 10 * time.Minute
	MaxCodeAttempts = 5
)

// GenerateCode returns a random numeric sign-in code.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n), nil
}

// HashCode hashes a sign-in code for storage.
func HashCode(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckCode reports whether code matches a stored hash.
func CheckCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
