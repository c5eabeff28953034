package pkg

import (
	"io"
	"slices"

	"go.uber.org/multierr"
)

// CombinedWriter fans every write out to all of its writers. A failing
// writer does not stop the others, their errors are combined.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{Writers: slices.Clone(writers)}
}

// Write reports the most any single writer took, so n never exceeds len(p).
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var (
		n   int
		err error
	)
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		err = multierr.Append(err, werr)
		n = max(n, written)
	}
	return n, err
}
