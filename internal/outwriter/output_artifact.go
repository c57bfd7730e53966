package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// PrintArtifact outputs a cached artifact, dispatching based on the output format configured.
// CSV output is the stored table itself, so it only works for CSV artifacts.
func PrintArtifact(artifact schema.CachedArtifact, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONArtifact(w, artifact)
		}, "Wrote JSON")
	case schema.CSVOut:
		if artifact.Format != schema.CSVArtifact {
			return fmt.Errorf("artifact for %s is stored as %s. Use --output json", artifact.ClientID, artifact.Format)
		}
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			_, err := w.Write(artifact.Data)
			return err
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for cached artifacts. Rerun the pipeline with --output parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeArtifactText(w, artifact)
		}, "Wrote text")
	}
}

// writeArtifactText prints the artifact metadata followed by the raw table.
func writeArtifactText(w io.Writer, artifact schema.CachedArtifact) error {
	data := [][]string{
		{"Client", artifact.ClientID},
		{"Format", string(artifact.Format)},
		{"Updated", artifact.UpdatedAt.Local().Format(contract.DateTimeFormat)},
		{"Rows", strconv.Itoa(artifact.RowCount)},
		{"Periods", strconv.Itoa(artifact.PeriodCount)},
		{"Skipped Records", strconv.Itoa(artifact.SkippedRecords)},
		{"Content Hash", artifact.ContentHash},
		{"Fingerprint", fmt.Sprintf("%016x", artifact.Fingerprint)},
		{"Size", fmt.Sprintf("%d bytes", len(artifact.Data))},
	}
	if err := renderTable(w, []string{"Field", "Value"}, data); err != nil {
		return err
	}
	if _, err := w.Write(artifact.Data); err != nil {
		return err
	}
	return nil
}

// writeJSONArtifact writes the artifact with its table inlined: JSON artifacts
// as nested JSON, CSV artifacts as a string.
func writeJSONArtifact(w io.Writer, artifact schema.CachedArtifact) error {
	type jsonArtifact struct {
		ClientID       string                `json:"client_id"`
		Format         schema.ArtifactFormat `json:"format"`
		UpdatedAt      time.Time             `json:"updated_at"`
		ContentHash    string                `json:"content_hash"`
		Fingerprint    string                `json:"fingerprint"`
		RowCount       int                   `json:"row_count"`
		PeriodCount    int                   `json:"period_count"`
		SkippedRecords int                   `json:"skipped_records"`
		Data           any                   `json:"tabular_data"`
	}

	var data any = string(artifact.Data)
	if artifact.Format == schema.JSONArtifact && json.Valid(artifact.Data) {
		data = json.RawMessage(artifact.Data)
	}
	return writeJSON(w, jsonArtifact{
		ClientID:       artifact.ClientID,
		Format:         artifact.Format,
		UpdatedAt:      artifact.UpdatedAt,
		ContentHash:    artifact.ContentHash,
		Fingerprint:    fmt.Sprintf("%016x", artifact.Fingerprint),
		RowCount:       artifact.RowCount,
		PeriodCount:    artifact.PeriodCount,
		SkippedRecords: artifact.SkippedRecords,
		Data:           data,
	})
}
