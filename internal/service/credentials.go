package service

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"account-service/internal/domain"
)

// dummyHash is compared against when a login names an unknown user, so both
// failure paths cost one bcrypt verification.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// usernameAvailable reports whether a looked-up name leaves it free to use:
// nobody holds it, or the holder is the user being updated (name unchanged).
func usernameAvailable(holder *domain.User, userID int64) bool {
	return holder == nil || holder.ID == userID
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func passwordsMatch(hash, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(supplied)) == nil
}
