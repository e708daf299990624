package runtime_test

import (
	"context"
	"random-chat/runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SameKeyIsExclusive(t *testing.T) {
	req := require.New(t)
	locks := runtime.NewKeyedMutex()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(context.Background(), "chess")
			if err != nil {
				return
			}
			defer unlock()
			n := inside.Add(1)
			for {
				current := maxInside.Load()
				if n <= current || maxInside.CompareAndSwap(current, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	// Then never more than one holder at a time, and the table is empty again
	req.Equal(int32(1), maxInside.Load())
	req.Zero(locks.Len())
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	req := require.New(t)
	locks := runtime.NewKeyedMutex()

	// Given chess held
	unlockChess, err := locks.Lock(context.Background(), "chess")
	req.NoError(err)
	defer unlockChess()

	// Then music is still available right away
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockMusic, err := locks.Lock(ctx, "music")
	req.NoError(err)
	req.Equal(2, locks.Len())
	unlockMusic()
	req.Equal(1, locks.Len())
}

func TestKeyedMutex_ContextCancelledWhileWaiting(t *testing.T) {
	req := require.New(t)
	locks := runtime.NewKeyedMutex()

	unlock, err := locks.Lock(context.Background(), "chess")
	req.NoError(err)

	// When a second caller gives up waiting
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "chess")
	req.ErrorIs(err, context.DeadlineExceeded)

	// Then releasing twice is harmless and drops the entry
	unlock()
	unlock()
	req.Zero(locks.Len())

	unlock, err = locks.Lock(context.Background(), "chess")
	req.NoError(err)
	unlock()
}
