package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"tidal_efficiency/internal/model"
)

// Parser reads live sensor readings from a source.
type Parser interface {
	Parse(r io.Reader) ([]model.Reading, error)
}

// Encoding selects the character set of a CSV source.
type Encoding string

const (
	EncodingUTF8  Encoding = "utf-8"
	EncodingCP949 Encoding = "cp949"
)

// ParseEncoding maps user input such as "euc-kr" or "utf-8-sig" to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return EncodingUTF8, nil
	case "cp949", "euc-kr", "euckr", "ms949":
		return EncodingCP949, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", s)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode wraps r so that it yields UTF-8 without a byte order mark.
func Decode(r io.Reader, enc Encoding) io.Reader {
	if enc == EncodingCP949 {
		return transform.NewReader(r, korean.EUCKR.NewDecoder())
	}
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// csvSource is the shared reading loop of all table parsers.
type csvSource struct {
	cr      *csv.Reader
	columns map[string]int
	lineNum int
}

func openCSV(r io.Reader, enc Encoding) (*csvSource, error) {
	cr := csv.NewReader(Decode(r, enc))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if _, dup := columns[col]; !dup {
			columns[col] = i
		}
	}
	return &csvSource{cr: cr, columns: columns, lineNum: 1}, nil
}

// column returns the index of the first present name among aliases.
func (s *csvSource) column(aliases ...string) (int, error) {
	for _, name := range aliases {
		if idx, ok := s.columns[name]; ok {
			return idx, nil
		}
	}
	return -1, fmt.Errorf("missing column %q", aliases[0])
}

func (s *csvSource) optionalColumn(aliases ...string) int {
	idx, err := s.column(aliases...)
	if err != nil {
		return -1
	}
	return idx
}

// next returns the next record, or io.EOF.
func (s *csvSource) next() ([]string, error) {
	s.lineNum++
	record, err := s.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV line %d: %w", s.lineNum, err)
	}
	return record, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseFloatField(record []string, idx int, name string) (float64, error) {
	raw := field(record, idx)
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", name, raw, err)
	}
	return v, nil
}

// timestampLayouts lists the date-time shapes seen in station and weather exports.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006.01.02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
}

// ParseTimestamp normalizes a timestamp string to a UTC time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseDateClock joins a date and an hour-of-day field. A clock of "24:00"
// denotes midnight at the end of the date and rolls over to the next day.
func ParseDateClock(date, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	rollover := false
	if strings.HasPrefix(clock, "24:") || clock == "24" {
		clock = "00:00"
		rollover = true
	}
	if !strings.Contains(clock, ":") {
		clock += ":00"
	}
	ts, err := ParseTimestamp(strings.TrimSpace(date) + " " + clock)
	if err != nil {
		return time.Time{}, err
	}
	if rollover {
		ts = ts.AddDate(0, 0, 1)
	}
	return ts, nil
}

// ParseFile opens path and runs parse over it.
func ParseFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}
