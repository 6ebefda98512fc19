package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// dummyHash is a throwaway bcrypt digest computed once at startup.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vibescript-dummy-credential"), bcrypt.DefaultCost)

// CompareDummy burns a bcrypt comparison against a fixed hash so a lookup
// miss takes as long as a real password check.
func CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
