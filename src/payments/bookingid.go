package payments

import (
	"crypto/rand"
	"math/big"
)

const (
	BOOKING_ID_ALPHABET     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	BOOKING_ID_LENGTH       = 10
	MAX_BOOKING_ID_ATTEMPTS = 5
)

// IDGenerator returns a candidate booking id. Uniqueness is enforced by the
// store, not the generator.
type IDGenerator func() (string, error)

func NewBookingID() (string, error) {
	size := big.NewInt(int64(len(BOOKING_ID_ALPHABET)))
	id := make([]byte, BOOKING_ID_LENGTH)
	for i := range id {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		id[i] = BOOKING_ID_ALPHABET[n.Int64()]
	}
	return string(id), nil
}
