// Package utils holds small helpers shared across layers: password
// hashing for admin-created accounts and JWT minting/verification.
package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes the initial password an administrator assigns
// when creating an account.  The cost comes from BCRYPT_COST in the
// configuration so tests can run with a cheap cost while production
// keeps a strong one.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt
// hash.  Login treats a mismatch and a malformed hash the same way:
// the credentials are refused without saying which part failed.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
