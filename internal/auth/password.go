package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16
	keyLength  = 32
	// Interactive-login scrypt parameters (N=2^15).
	scryptLogN = 15
	scryptR    = 8
	scryptP    = 1
)

func generateSalt(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// HashPassword hashes a password with scrypt and a random salt, encoding
// parameters, salt and hash into a single PHC-style string.
func HashPassword(password string) (string, error) {
	salt, err := generateSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash, err := scrypt.Key([]byte(password), salt, 1<<scryptLogN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$scrypt$ln=%d,r=%d,p=%d$%s$%s", scryptLogN, scryptR, scryptP, encodedSalt, encodedHash), nil
}

// VerifyPassword verifies a password against a stored hash string. It
// returns false for malformed hashes rather than erroring; login treats
// both the same way.
func VerifyPassword(hashedPassword, password string) bool {
	parts := strings.Split(hashedPassword, "$")
	// "", "scrypt", params, salt, hash
	if len(parts) != 5 || parts[1] != "scrypt" {
		return false
	}

	logN, r, p, ok := parseScryptParams(parts[2])
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	computed, err := scrypt.Key([]byte(password), salt, 1<<logN, r, p, len(hash))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(computed, hash) == 1
}

func parseScryptParams(s string) (logN, r, p int, ok bool) {
	for _, kv := range strings.Split(s, ",") {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return 0, 0, 0, false
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, 0, 0, false
		}
		switch key {
		case "ln":
			logN = n
		case "r":
			r = n
		case "p":
			p = n
		default:
			return 0, 0, 0, false
		}
	}
	if logN <= 0 || logN > 31 || r <= 0 || p <= 0 {
		return 0, 0, 0, false
	}
	return logN, r, p, true
}
