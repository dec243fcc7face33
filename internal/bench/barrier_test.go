package bench

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarrierReleasesTogether(t *testing.T) {
	const parties = 8

	b := newBarrier(parties)

	var before, after atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			before.Add(1)
			b.Wait()
			// every participant must observe the full quorum
			assert.EqualValues(t, parties, before.Load())
			after.Add(1)
		}()
	}

	wg.Wait()
	assert.EqualValues(t, parties, after.Load())
}
