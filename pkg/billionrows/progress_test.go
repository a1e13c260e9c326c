package billionrows

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_Monotonic(t *testing.T) {
	t.Parallel()

	var got []float64
	p := newProgressReporter(func(ev Progress) { got = append(got, ev.Percent) })
	for _, pct := range []float64{10, 40, 30, 120, 50} {
		p.send(Progress{Percent: pct})
	}
	p.close()

	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
	assert.Equal(t, 100.0, got[len(got)-1])
}

func TestProgressReporter_Coalesces(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		got     []int
		release = make(chan struct{})
		parked  = make(chan struct{})
		once    sync.Once
	)
	p := newProgressReporter(func(ev Progress) {
		once.Do(func() {
			close(parked)
			<-release
		})
		mu.Lock()
		got = append(got, ev.ChunksDone)
		mu.Unlock()
	})

	p.send(Progress{ChunksDone: 1})
	<-parked
	for i := 2; i <= 1000; i++ {
		p.send(Progress{ChunksDone: i})
	}
	close(release)
	p.close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 1000}, got, "only the newest pending notification survives")
}

func TestProgressReporter_NilConsumer(t *testing.T) {
	t.Parallel()

	p := newProgressReporter(nil)
	p.send(Progress{Percent: 50})
	p.close()
}

func TestProgressTracker(t *testing.T) {
	t.Parallel()

	t.Run("records", func(t *testing.T) {
		tr := &progressTracker{mode: ProgressRecords, chunksTotal: 4, bytesTotal: 400}
		ev := tr.complete(Batch{Bytes: 100})
		assert.Equal(t, 25.0, ev.Percent)
		assert.Equal(t, 1, ev.ChunksDone)
		assert.Equal(t, int64(100), ev.BytesDone)

		tr.complete(Batch{Bytes: 100})
		final := tr.final()
		assert.Equal(t, 100.0, final.Percent)
		assert.Equal(t, 2, final.ChunksTotal)
	})

	t.Run("bytes", func(t *testing.T) {
		tr := &progressTracker{mode: ProgressBytes, bytesTotal: 1000}
		assert.Equal(t, 30.0, tr.complete(Batch{Bytes: 300}).Percent)
		assert.Equal(t, 0, tr.snapshot().ChunksTotal)
	})

	t.Run("unknown total", func(t *testing.T) {
		tr := &progressTracker{mode: ProgressBytes}
		assert.Zero(t, tr.complete(Batch{Bytes: 300}).Percent)
		assert.Equal(t, 100.0, tr.final().Percent)
	})
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]FailurePolicy{"": RetryOnce, "retry": RetryOnce, "retry-once": RetryOnce, "exclude": ExcludeChunk} {
		got, err := ParseFailurePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFailurePolicy("ignore")
	assert.Error(t, err)

	for in, want := range map[string]ProgressMode{"": ProgressRecords, "records": ProgressRecords, "lines": ProgressRecords, "bytes": ProgressBytes} {
		got, err := ParseProgressMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err = ParseProgressMode("percent")
	assert.Error(t, err)
}
