package billionrows

import (
	"bytes"
	"io"
	"os"
)

// Source opens a fresh forward-only stream over the input for each pass.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Sizer is implemented by sources whose byte size is known up front.
type Sizer interface {
	Size() (int64, error)
}

// FileSource reads a file from disk.
type FileSource string

func (f FileSource) Name() string { return string(f) }

func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f FileSource) Size() (int64, error) {
	info, err := os.Stat(string(f))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// BytesSource serves an in-memory buffer.
type BytesSource struct {
	Label string
	Data  []byte
}

func (b BytesSource) Name() string {
	if b.Label == "" {
		return "<memory>"
	}
	return b.Label
}

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

func (b BytesSource) Size() (int64, error) {
	return int64(len(b.Data)), nil
}
