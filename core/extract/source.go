package extract

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/huangsam/vitals/schema"
)

// Stream-level errors. ErrUnreadable is fatal for a run; ErrTruncated ends
// extraction early but keeps the records read so far.
var (
	ErrUnreadable = errors.New("export stream cannot be read")
	ErrTruncated  = errors.New("export stream truncated")
)

// errMalformedRow is returned by a source for a single unparsable row.
var errMalformedRow = errors.New("malformed row")

// Source yields raw samples from a health export.
type Source interface {
	// Next returns the next raw sample, or io.EOF once the stream is exhausted.
	Next() (schema.RawSample, error)
	Close() error
}

// DetectFormat infers the export format from a file name.
func DetectFormat(name string) (schema.SourceFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return schema.XMLSource, nil
	case ".zip":
		return schema.ZipSource, nil
	case ".csv":
		return schema.CSVSource, nil
	default:
		return "", fmt.Errorf("cannot infer export format from %q. Use --format xml, zip or csv", name)
	}
}

// Open opens an export file. An empty format is inferred from the file extension.
// Failures are wrapped with ErrUnreadable.
func Open(name string, format schema.SourceFormat) (Source, error) {
	if format == "" {
		f, err := DetectFormat(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		format = f
	}

	switch format {
	case schema.XMLSource:
		file, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return newXMLSource(file, file), nil

	case schema.CSVSource:
		file, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return newCSVSource(file, file), nil

	case schema.ZipSource:
		return openZip(name)

	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", ErrUnreadable, format)
	}
}

// openZip reads export.xml out of an Apple Health export archive.
func openZip(name string) (Source, error) {
	archive, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	for _, f := range archive.File {
		if path.Base(f.Name) != "export.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			_ = archive.Close()
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return newXMLSource(rc, multiCloser{rc, archive}), nil
	}

	_ = archive.Close()
	return nil, fmt.Errorf("%w: %s has no export.xml", ErrUnreadable, name)
}

// multiCloser closes every closer in order and returns the first error.
type multiCloser []io.Closer

func (mc multiCloser) Close() error {
	var first error
	for _, c := range mc {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
