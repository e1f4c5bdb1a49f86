package auth

import (
	"regexp"

	"github.com/ansel1/merry"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials = merry.New("invalid account or password").WithHTTPCode(401)
	ErrAccountLocked  = merry.New("account is locked, try again later").WithHTTPCode(423)
	ErrDisabled       = merry.New("account is disabled").WithHTTPCode(403)
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", merry.Wrap(err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	hasUpper   = regexp.MustCompile(`[A-Z]`).MatchString
	hasLower   = regexp.MustCompile(`[a-z]`).MatchString
	hasNumber  = regexp.MustCompile(`[0-9]`).MatchString
	hasSpecial = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>_\-+=]`).MatchString
)

// ValidatePasswordStrength checks a new employee password: at least 8
// characters from at least 2 of upper, lower, digit, special.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return merry.New("password must be at least 8 characters")
	}
	checks := 0
	for _, has := range []func(string) bool{hasUpper, hasLower, hasNumber, hasSpecial} {
		if has(password) {
			checks++
		}
	}
	if checks < 2 {
		return merry.New("password must mix at least 2 of: uppercase, lowercase, numbers, special characters")
	}
	return nil
}
