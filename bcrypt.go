package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost trades sign-in latency for brute force resistance.
const passwordHashCost = 14

// HashPassword derives a salted hash from a plaintext password. Empty
// passwords are rejected before they reach the hasher.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}

	return string(h), nil
}

// ComparePasswordAndHash checks password against a stored hash. A mismatch
// comes back as ErrMismatchedHashAndPassword; anything else is a hash
// integrity failure.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatchedHashAndPassword
	}
	return err
}
