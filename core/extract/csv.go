package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/vitals/schema"
)

// requiredColumns must appear in the header; unit, source and end are optional.
var requiredColumns = []string{"type", "timestamp", "value"}

// csvSource reads a generic sample stream with a header row.
type csvSource struct {
	r       *csv.Reader
	closer  io.Closer
	columns map[string]int
}

// NewCSVSource reads a CSV stream with header type,timestamp,value[,unit,source,end].
func NewCSVSource(r io.Reader) Source {
	return newCSVSource(r, io.NopCloser(r))
}

func newCSVSource(r io.Reader, closer io.Closer) *csvSource {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return &csvSource{r: reader, closer: closer}
}

// readHeader validates the header row on first use.
func (s *csvSource) readHeader() error {
	header, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty CSV stream", ErrUnreadable)
		}
		return fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	s.columns = make(map[string]int, len(header))
	for i, col := range header {
		s.columns[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := s.columns[col]; !ok {
			return fmt.Errorf("%w: CSV header is missing column %q", ErrUnreadable, col)
		}
	}
	return nil
}

func (s *csvSource) Next() (schema.RawSample, error) {
	if s.columns == nil {
		if err := s.readHeader(); err != nil {
			return schema.RawSample{}, err
		}
	}

	row, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return schema.RawSample{}, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return schema.RawSample{}, fmt.Errorf("%w: %w", errMalformedRow, err)
		}
		return schema.RawSample{}, fmt.Errorf("%w: %w", ErrTruncated, err)
	}

	field := func(name string) string {
		i, ok := s.columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return schema.RawSample{
		TypeID:    field("type"),
		Timestamp: field("timestamp"),
		End:       field("end"),
		Value:     field("value"),
		Unit:      field("unit"),
		Source:    field("source"),
	}, nil
}

func (s *csvSource) Close() error {
	return s.closer.Close()
}
