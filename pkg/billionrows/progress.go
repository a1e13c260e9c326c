package billionrows

import "sync"

// Progress is one advisory progress notification.
type Progress struct {
	ChunksDone  int
	ChunksTotal int // 0 while unknown
	Percent     float64
	BytesDone   int64
	BytesTotal  int64 // 0 while unknown
}

// progressReporter hands notifications to a consumer goroutine through a
// one-slot mailbox. A newer notification replaces an undelivered one, so the
// sender never waits on the consumer.
type progressReporter struct {
	fn   func(Progress)
	box  chan Progress
	wg   sync.WaitGroup
	last float64
}

func newProgressReporter(fn func(Progress)) *progressReporter {
	p := &progressReporter{fn: fn, box: make(chan Progress, 1)}
	if fn == nil {
		return p
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for ev := range p.box {
			p.fn(ev)
		}
	}()
	return p
}

// send must only be called from one goroutine.
func (p *progressReporter) send(ev Progress) {
	if p.fn == nil {
		return
	}
	// Percent never goes backwards.
	if ev.Percent < p.last {
		ev.Percent = p.last
	}
	if ev.Percent > 100 {
		ev.Percent = 100
	}
	p.last = ev.Percent

	for {
		select {
		case p.box <- ev:
			return
		default:
		}
		select {
		case <-p.box:
		default:
		}
	}
}

// close flushes the last notification and waits for the consumer.
func (p *progressReporter) close() {
	close(p.box)
	p.wg.Wait()
}

// progressTracker computes notifications as chunks are folded.
type progressTracker struct {
	mode        ProgressMode
	chunksTotal int
	bytesTotal  int64
	chunksDone  int
	bytesDone   int64
}

func (t *progressTracker) complete(b Batch) Progress {
	t.chunksDone++
	t.bytesDone += b.Bytes
	return t.snapshot()
}

func (t *progressTracker) snapshot() Progress {
	ev := Progress{
		ChunksDone:  t.chunksDone,
		ChunksTotal: t.chunksTotal,
		BytesDone:   t.bytesDone,
		BytesTotal:  t.bytesTotal,
	}
	switch t.mode {
	case ProgressRecords:
		if t.chunksTotal > 0 {
			ev.Percent = float64(t.chunksDone) / float64(t.chunksTotal) * 100
		}
	case ProgressBytes:
		if t.bytesTotal > 0 {
			ev.Percent = float64(t.bytesDone) / float64(t.bytesTotal) * 100
		}
	}
	return ev
}

// final marks the run as finished at 100%.
func (t *progressTracker) final() Progress {
	ev := t.snapshot()
	ev.ChunksTotal = t.chunksDone
	ev.Percent = 100
	return ev
}
