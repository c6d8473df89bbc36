package core

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns an identifier seeded by the creation time: `<millis>_<6 base36 chars>`.
func NewID(millis int64) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(int64((millis >> (i * 5)) % int64(len(idAlphabet))))
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return strconv.FormatInt(millis, 10) + "_" + string(suffix)
}
