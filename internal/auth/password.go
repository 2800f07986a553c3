package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost of 8 keeps a login around 25ms on small nodes
const bcryptCost = 8

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// ResolvePasswordHash returns hash when it is set, otherwise a fresh hash of plain
func ResolvePasswordHash(hash, plain string) (string, error) {
	if strings.TrimSpace(hash) != "" {
		return strings.TrimSpace(hash), nil
	}
	return HashPassword(plain)
}
