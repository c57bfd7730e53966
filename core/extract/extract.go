// Package extract turns raw health export records into normalized daily samples.
package extract

import (
	"context"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/schema"
)

// Options controls normalization.
type Options struct {
	// Location is the client's timezone. When nil, each timestamp's own
	// offset decides its calendar date.
	Location *time.Location

	// DedupExact drops records identical in every field to an earlier one.
	// Records are remembered by a 64-bit hash, not by value.
	DedupExact bool
}

// Extractor normalizes raw samples using a metric registry.
type Extractor struct {
	reg  *registry.Registry
	opts Options
}

// New creates an extractor.
func New(reg *registry.Registry, opts Options) *Extractor {
	return &Extractor{reg: reg, opts: opts}
}

// outcome of normalizing a single record.
type outcome int

const (
	emitted outcome = iota
	skipped
	ignored
)

// Extract reads src to the end and calls emit for every valid sample.
// Malformed and unknown records are counted, never returned as errors.
// The returned error is non-nil only when the stream is unreadable or ctx is done.
func (e *Extractor) Extract(ctx context.Context, src Source, emit func(schema.Sample)) (schema.ExtractStats, error) {
	var stats schema.ExtractStats
	var seen map[uint64]struct{}
	var digest *xxhash.Digest
	if e.opts.DedupExact {
		seen = make(map[uint64]struct{})
		digest = xxhash.New()
	}

	seq := 0
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, err := src.Next()
		switch {
		case err == nil:
		case errors.Is(err, errMalformedRow):
			stats.Read++
			stats.Skipped++
			continue
		case errors.Is(err, ErrTruncated):
			stats.Truncated = true
			return stats, nil
		case errors.Is(err, io.EOF):
			return stats, nil
		default:
			return stats, err
		}
		stats.Read++

		def, ok := e.reg.Lookup(raw.TypeID)
		if !ok {
			stats.Ignored++
			continue
		}

		if seen != nil {
			key := recordKey(digest, raw)
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				continue
			}
			seen[key] = struct{}{}
		}

		sample, result := e.normalize(raw, def)
		switch result {
		case skipped:
			stats.Skipped++
		case ignored:
			stats.Ignored++
		default:
			sample.Seq = seq
			seq++
			stats.Emitted++
			emit(sample)
		}
	}
}

var fieldSep = []byte{0}

// recordKey hashes every field of raw. Fields are separated so that
// shifting text between adjacent fields changes the key.
func recordKey(d *xxhash.Digest, raw schema.RawSample) uint64 {
	d.Reset()
	for _, f := range [...]string{raw.TypeID, raw.Timestamp, raw.End, raw.Value, raw.Unit, raw.Source} {
		_, _ = d.WriteString(f)
		_, _ = d.Write(fieldSep)
	}
	return d.Sum64()
}

// normalize converts one raw record of a known type into a sample.
func (e *Extractor) normalize(raw schema.RawSample, def schema.MetricDef) (schema.Sample, outcome) {
	start, err := ParseTimestamp(raw.Timestamp, e.opts.Location)
	if err != nil {
		return schema.Sample{}, skipped
	}

	var value float64
	switch def.Kind {
	case schema.DurationKind:
		if !registry.AcceptsCategory(def, raw.Value) {
			return schema.Sample{}, ignored
		}
		end, err := ParseTimestamp(raw.End, e.opts.Location)
		if err != nil || end.Before(start) {
			return schema.Sample{}, skipped
		}
		value = end.Sub(start).Hours()

	default:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw.Value), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return schema.Sample{}, skipped
		}
		value, err = registry.Normalize(v, raw.Unit, def.Unit)
		if err != nil {
			return schema.Sample{}, skipped
		}
	}

	local := start
	if e.opts.Location != nil {
		local = start.In(e.opts.Location)
	}
	return schema.Sample{
		Date:   schema.DateOf(local),
		Metric: def.Name,
		Value:  value,
		At:     start,
		Source: raw.Source,
	}, emitted
}
