// Package core wires the pipeline stages into a single run and orchestrates runs for the CLI.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/vitals/core/agg"
	"github.com/huangsam/vitals/core/cachewriter"
	"github.com/huangsam/vitals/core/derive"
	"github.com/huangsam/vitals/core/extract"
	"github.com/huangsam/vitals/core/macro"
	"github.com/huangsam/vitals/core/registry"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// Run-level errors. Both leave the client's previous artifact untouched.
var (
	ErrStructuralFailure = errors.New("structural failure")
	ErrCacheWriteFailure = cachewriter.ErrCacheWriteFailure
)

// RunInput is everything a single run needs. Targets and VitaminLogs may be empty.
type RunInput struct {
	ClientID     string
	Source       extract.Source
	VitaminLogs  []schema.VitaminLogEntry
	Targets      schema.Targets
	ProgramStart *time.Time     // Macrocycle anchor; nil means the first day with data
	Location     *time.Location // Client timezone; nil keeps each timestamp's offset
	Registry     *registry.Registry
	Derive       derive.Config
	DedupExact   bool
	PeriodDays   int
	Format       schema.ArtifactFormat
	Store        contract.ArtifactStore
}

// Run executes the pipeline once for one client and replaces its cached artifact.
// The source is closed on every path. A cancelled context never reaches the store.
func Run(ctx context.Context, in RunInput) (*schema.AnalyticsResult, error) {
	if in.Source == nil {
		return nil, fmt.Errorf("%w: no export source for %s", ErrStructuralFailure, in.ClientID)
	}
	defer func() { _ = in.Source.Close() }()

	if in.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	reg := in.Registry
	if reg == nil {
		reg = registry.Default()
	}

	// --- 1. Extraction and daily aggregation ---
	aggregator := agg.New(reg)
	extractor := extract.New(reg, extract.Options{Location: in.Location, DedupExact: in.DedupExact})
	stats, err := extractor.Extract(ctx, in.Source, aggregator.Add)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrStructuralFailure, err)
	}

	// --- 2. Derived metrics and macrocycles ---
	rows := derive.New(reg, in.Derive).Derive(in.ClientID, aggregator.Rows(), in.VitaminLogs, in.Targets)
	periods := macro.New(reg, in.PeriodDays).Segment(rows, in.ProgramStart)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- 3. Atomic artifact replace ---
	artifact, err := cachewriter.New(in.Store, in.Format).Write(ctx, in.ClientID, rows, periods, stats)
	if err != nil {
		return nil, err
	}

	return &schema.AnalyticsResult{
		ClientID: in.ClientID,
		Rows:     rows,
		Periods:  periods,
		Stats:    stats,
		Artifact: artifact,
	}, nil
}

// RunStatus maps a run error onto the status recorded in the run log.
func RunStatus(err error) schema.RunStatus {
	switch {
	case err == nil:
		return schema.RunSucceeded
	case errors.Is(err, ErrStructuralFailure):
		return schema.RunStructuralFailure
	case errors.Is(err, ErrCacheWriteFailure):
		return schema.RunCacheWriteFailure
	default:
		return schema.RunFailed
	}
}
