package cache

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	s.Set([]byte("BEGIN:VCALENDAR"), at)

	f, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, []byte("BEGIN:VCALENDAR"), f.Body)
	assert.True(t, f.GeneratedAt.Equal(at))
}

func TestStoreReplaceIsWholesale(t *testing.T) {
	s := NewStore()
	s.Set([]byte("old"), time.Unix(1, 0))
	s.Set([]byte("new"), time.Unix(2, 0))

	f, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "new", string(f.Body))
	assert.Equal(t, time.Unix(2, 0).Unix(), f.GeneratedAt.Unix())
}

// Readers racing a writer must observe one of the two snapshots in full,
// never a mix of body and timestamp.
func TestStoreConcurrentReaders(t *testing.T) {
	s := NewStore()

	feedA := bytes.Repeat([]byte("a"), 1024)
	feedB := bytes.Repeat([]byte("b"), 1024)
	atA := time.Unix(100, 0)
	atB := time.Unix(200, 0)

	s.Set(feedA, atA)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				s.Set(feedB, atB)
			} else {
				s.Set(feedA, atA)
			}
		}
	}()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				f, ok := s.Get()
				if !ok {
					t.Error("feed disappeared")
					return
				}
				switch {
				case bytes.Equal(f.Body, feedA):
					assert.True(t, f.GeneratedAt.Equal(atA))
				case bytes.Equal(f.Body, feedB):
					assert.True(t, f.GeneratedAt.Equal(atB))
				default:
					t.Error("observed a mixed feed snapshot")
					return
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}
