package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/vitals/schema"
)

// xmlSource streams <Record> elements of an Apple Health export.
type xmlSource struct {
	dec     *xml.Decoder
	closer  io.Closer
	sawRoot bool
	records int
}

// NewXMLSource reads an Apple Health export.xml stream.
func NewXMLSource(r io.Reader) Source {
	return newXMLSource(r, io.NopCloser(r))
}

func newXMLSource(r io.Reader, closer io.Closer) *xmlSource {
	return &xmlSource{dec: xml.NewDecoder(r), closer: closer}
}

// Next returns the next Record. Syntax errors before any record are fatal;
// syntax errors afterwards are reported as truncation.
func (s *xmlSource) Next() (schema.RawSample, error) {
	for {
		tok, err := s.dec.Token()
		if errors.Is(err, io.EOF) {
			if !s.sawRoot {
				return schema.RawSample{}, fmt.Errorf("%w: no XML elements found", ErrUnreadable)
			}
			return schema.RawSample{}, io.EOF
		}
		if err != nil {
			if s.records == 0 {
				return schema.RawSample{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
			}
			return schema.RawSample{}, fmt.Errorf("%w after %d records: %w", ErrTruncated, s.records, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		s.sawRoot = true
		if se.Name.Local != "Record" {
			continue
		}
		s.records++
		return recordFromAttrs(se.Attr), nil
	}
}

func (s *xmlSource) Close() error {
	return s.closer.Close()
}

// recordFromAttrs maps Record attributes onto a raw sample.
func recordFromAttrs(attrs []xml.Attr) schema.RawSample {
	var raw schema.RawSample
	for _, a := range attrs {
		switch a.Name.Local {
		case "type":
			raw.TypeID = a.Value
		case "startDate":
			raw.Timestamp = a.Value
		case "endDate":
			raw.End = a.Value
		case "value":
			raw.Value = a.Value
		case "unit":
			raw.Unit = a.Value
		case "sourceName":
			raw.Source = a.Value
		}
	}
	return raw
}
