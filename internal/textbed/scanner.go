// Package textbed reads the legacy tab-delimited BED-like text format.
// Lines starting with '#' and blank lines are skipped. Files whose name ends
// in .gz or .bgz are decompressed transparently.
package textbed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Row is one data line.
type Row struct {
	Line   int
	Fields []string
}

// Int parses field i as a decimal integer.
func (r Row) Int(i int) (int, error) {
	if i >= len(r.Fields) {
		return 0, fmt.Errorf("line %d: missing column %d", r.Line, i+1)
	}
	v, err := strconv.Atoi(strings.TrimSpace(r.Fields[i]))
	if err != nil {
		return 0, fmt.Errorf("line %d: column %d: %w", r.Line, i+1, err)
	}
	return v, nil
}

// Field returns field i or "" when absent.
func (r Row) Field(i int) string {
	if i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// Scanner iterates over the data rows of a text file.
type Scanner struct {
	closers []io.Closer
	sc      *bufio.Scanner
	row     Row
	line    int
	err     error
}

// Open opens path for scanning.
func Open(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	var r io.Reader = f
	closers := []io.Closer{f}
	if IsGzip(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		r = gz
		closers = append([]io.Closer{gz}, closers...)
	}
	s := NewScanner(r)
	s.closers = closers
	return s, nil
}

// NewScanner scans rows from r. The caller owns r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Scanner{sc: sc}
}

// IsGzip reports whether the file name selects gzip decompression.
func IsGzip(path string) bool {
	return strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".bgz")
}

// Scan advances to the next data row.
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimRight(s.sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s.row = Row{Line: s.line, Fields: strings.Split(text, "\t")}
		return true
	}
	s.err = s.sc.Err()
	return false
}

func (s *Scanner) Row() Row { return s.row }

func (s *Scanner) Err() error { return s.err }

func (s *Scanner) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// Interval is the leading chrom/begin/end triple of a BED row.
type Interval struct {
	Chrom string
	Begin int
	End   int
}

// ParseInterval reads the first three columns. BED begins are 0-based.
func ParseInterval(r Row) (Interval, error) {
	if len(r.Fields) < 3 {
		return Interval{}, fmt.Errorf("line %d: want at least 3 columns, got %d", r.Line, len(r.Fields))
	}
	begin, err := r.Int(1)
	if err != nil {
		return Interval{}, err
	}
	end, err := r.Int(2)
	if err != nil {
		return Interval{}, err
	}
	if begin < 0 || end < begin {
		return Interval{}, fmt.Errorf("line %d: invalid interval [%d, %d)", r.Line, begin, end)
	}
	return Interval{Chrom: r.Field(0), Begin: begin, End: end}, nil
}
