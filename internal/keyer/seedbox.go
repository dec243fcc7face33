package keyer

import (
	"math/rand"
	"time"
)

const seedBoxSize = 2048

// seedBox decorrelates consecutive schedule points inside injection. It is written exactly once by Init before any worker starts and
// is read-only for the rest of the process, so workers share it without
// synchronization.
var seedBox [seedBoxSize]uint16

// Init fills the seed box from a reproducible source. Seed zero picks the
// wall clock, trading reproducibility for variety.
func Init(seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := rand.New(rand.NewSource(seed))
	for i := range seedBox {
		seedBox[i] = uint16(r.Uint32())
	}
}
