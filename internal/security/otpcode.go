package security

import (
	"crypto/rand"
	"math/big"
)

// GenerateNumericCode returns a uniform random numeric code of the given
// length. Leading zeros are allowed, so the result is always exactly length
// digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	digits := make([]byte, length)

	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))

		if err != nil {
			return "", err
		}

		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}
