package billionrows

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultDelimiter separates the key from the value on each line.
const DefaultDelimiter = ':'

// ParseRecord turns one line of the form "<key><delim><value>" into a Record.
// Surrounding whitespace is trimmed from both fields. Any failure wraps
// ErrMalformedRecord.
func ParseRecord(line string, delim byte) (Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Record{}, fmt.Errorf("%w: blank line", ErrMalformedRecord)
	}

	i := strings.IndexByte(line, delim)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: missing delimiter %q", ErrMalformedRecord, delim)
	}
	if strings.IndexByte(line[i+1:], delim) >= 0 {
		return Record{}, fmt.Errorf("%w: more than one delimiter %q", ErrMalformedRecord, delim)
	}

	key := strings.TrimSpace(line[:i])
	if key == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrMalformedRecord)
	}

	raw := strings.TrimSpace(line[i+1:])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: value %q: %v", ErrMalformedRecord, raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Record{}, fmt.Errorf("%w: value %q is not finite", ErrMalformedRecord, raw)
	}

	return Record{Key: key, Value: v}, nil
}

func validDelimiter(d byte) bool {
	switch d {
	case '\n', '\r', ' ', '\t':
		return false
	}
	return true
}
