package storage

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

/*
Responsibilities
- Emit one record per visited page: the page URL and its discovered
  same-domain links in ascending string order
- Keep records whole: lines from different workers never interleave

The format is human-oriented and not a wire contract; a structured
writer can be substituted without loss of conformance.
*/

type Sink interface {
	Write(record PageRecord) failure.ClassifiedError
}

// WriterSink serializes page records onto a single io.Writer. One
// process-wide mutex guards the write; the critical section is only the
// formatting and write of one record.
type WriterSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewStdoutSink() *WriterSink {
	return NewWriterSink(os.Stdout)
}

func NewWriterSink(out io.Writer) *WriterSink {
	return &WriterSink{out: out}
}

func (s *WriterSink) Write(record PageRecord) failure.ClassifiedError {
	sorted := make([]string, len(record.Links()))
	copy(sorted, record.Links())
	sort.Strings(sorted)

	var builder strings.Builder
	fmt.Fprintf(&builder, "%s  →  %d links\n", record.PageURL(), len(sorted))
	for _, link := range sorted {
		fmt.Fprintf(&builder, "    %s\n", link)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.out, builder.String()); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	return nil
}
