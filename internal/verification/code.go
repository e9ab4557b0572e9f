package verification

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

// GenerateCode returns a uniformly random 6-digit code in [100000, 999999].
// The range starts at 100000 so the string form is always exactly 6 digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.New("failed to generate verification code")
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
