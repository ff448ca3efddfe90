package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("snap")
	assert.Equal(t, "snap-0001", gen.Generate())
	assert.Equal(t, "snap-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "snap-0001", gen.Generate())

	assert.Equal(t, "id-0001", NewSequentialIDGenerator("").Generate())
}

func TestSequentialIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDGenerator("x")
	const n = 50

	var wg sync.WaitGroup
	seen := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- gen.Generate()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[string]bool{}
	for id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, n)
}

func TestFixturesAreConsistent(t *testing.T) {
	assert.True(t, SensorFrameValue().Type().Equal(SensorFrameType()))
	assert.True(t, TrackValue().Type().Equal(TrackType()))
	assert.True(t, IDNumberValue().Type().Equal(IDNumberType()))
	assert.Equal(t, 2, TrackValue().Child(1).NumberOfElements())
}
