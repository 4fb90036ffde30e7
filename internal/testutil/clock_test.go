package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_StartsAtEpoch(t *testing.T) {
	clock := NewFakeClock()
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_Advance(t *testing.T) {
	clock := NewFakeClock()

	clock.Advance(2 * time.Second)
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())

	// Never moves backwards.
	clock.Advance(-time.Hour)
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
}

func TestFakeClock_Reset(t *testing.T) {
	clock := NewFakeClockAt(Epoch.Add(time.Hour))
	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_ConcurrentAdvance(t *testing.T) {
	clock := NewFakeClock()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(50*time.Millisecond), clock.Now())
}
