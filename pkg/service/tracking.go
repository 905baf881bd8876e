package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	trackingMin  = 100_000_000_000
	trackingSpan = 900_000_000_000
)

// TrackingGenerator returns a candidate tracking id. Uniqueness is enforced by
// the order store, not here.
type TrackingGenerator func() (int64, error)

// RandomTrackingID draws a uniformly random 12-digit number.
func RandomTrackingID() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(trackingSpan))
	if err != nil {
		return 0, fmt.Errorf("failed to generate tracking id: %w", err)
	}
	return trackingMin + n.Int64(), nil
}
