// Package cachewriter serializes the analytics table and replaces a client's cached artifact.
package cachewriter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// ErrCacheWriteFailure is returned when the artifact could not be serialized or stored.
// The previous artifact, if any, is left in place.
var ErrCacheWriteFailure = errors.New("cache write failure")

// Writer replaces cached artifacts in an ArtifactStore.
type Writer struct {
	store  contract.ArtifactStore
	format schema.ArtifactFormat
	now    func() time.Time
}

// New creates a writer. An empty format means CSV.
func New(store contract.ArtifactStore, format schema.ArtifactFormat) *Writer {
	if format == "" {
		format = schema.CSVArtifact
	}
	return &Writer{store: store, format: format, now: time.Now}
}

// Build serializes the table into an artifact without storing it.
func Build(clientID string, format schema.ArtifactFormat, rows []schema.AnalyticsRow, periods []schema.MacrocyclePeriod, stats schema.ExtractStats) (schema.CachedArtifact, error) {
	data, err := Serialize(format, rows, periods)
	if err != nil {
		return schema.CachedArtifact{}, err
	}
	sum := sha256.Sum256(data)
	return schema.CachedArtifact{
		ClientID:       clientID,
		Format:         format,
		Data:           data,
		ContentHash:    hex.EncodeToString(sum[:]),
		Fingerprint:    xxhash.Sum64(data),
		RowCount:       len(rows),
		PeriodCount:    len(periods),
		SkippedRecords: stats.Skipped,
	}, nil
}

// Write builds the artifact and replaces the client's stored one in a single Put.
func (w *Writer) Write(ctx context.Context, clientID string, rows []schema.AnalyticsRow, periods []schema.MacrocyclePeriod, stats schema.ExtractStats) (schema.CachedArtifact, error) {
	artifact, err := Build(clientID, w.format, rows, periods, stats)
	if err != nil {
		return schema.CachedArtifact{}, fmt.Errorf("%w: serialize artifact for %s: %w", ErrCacheWriteFailure, clientID, err)
	}
	artifact.UpdatedAt = w.now().UTC()

	if w.store == nil {
		return schema.CachedArtifact{}, fmt.Errorf("%w: no artifact store configured", ErrCacheWriteFailure)
	}
	if err := w.store.Put(ctx, artifact); err != nil {
		return schema.CachedArtifact{}, fmt.Errorf("%w: store artifact for %s: %w", ErrCacheWriteFailure, clientID, err)
	}
	return artifact, nil
}
