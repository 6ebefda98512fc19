package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hashed, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)

	assert.NoError(t, ComparePassword(hashed, "s3cret"))
	assert.Error(t, ComparePassword(hashed, "wrong"))
}

func TestCompareDummyBurnsRealComparison(t *testing.T) {
	// The dummy hash must be a parseable bcrypt digest so the comparison
	// does real key-stretching work instead of bailing on a format error.
	cost, err := bcrypt.Cost(dummyHash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	for _, plain := range []string{"", "password", "hunter2"} {
		assert.Error(t, bcrypt.CompareHashAndPassword(dummyHash, []byte(plain)))
		CompareDummy(plain)
	}
}
