package auth

import "golang.org/x/crypto/bcrypt"

// HashOperatorKey hashes a plaintext operator key with the given bcrypt cost.
func HashOperatorKey(key string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyOperatorKey checks a presented operator key against its stored hash.
func VerifyOperatorKey(hashed, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(key))
}
