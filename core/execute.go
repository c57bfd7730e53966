package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/vitals/core/derive"
	"github.com/huangsam/vitals/core/extract"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/outwriter"
	"github.com/huangsam/vitals/internal/runlock"
	"github.com/huangsam/vitals/schema"
)

// RunRequest names one export to process for one client.
type RunRequest struct {
	ClientID   string              `yaml:"client"`
	ExportPath string              `yaml:"export"`
	Format     schema.SourceFormat `yaml:"format"`
}

// clientInputs is the client data loaded from the store before a run.
type clientInputs struct {
	client   schema.Client
	location *time.Location
	vitamins []schema.VitaminLogEntry
	targets  schema.Targets
}

// loadClientInputs reads the client profile, vitamin log and targets.
// A nil store behaves like the none backend: every client is active and has no data.
func loadClientInputs(ctx context.Context, cfg *contract.Config, store contract.DataStore, clientID string) (*clientInputs, error) {
	in := &clientInputs{
		client:   schema.Client{ClientID: clientID, Active: true},
		location: cfg.Location,
		targets:  schema.Targets{},
	}
	if store == nil {
		return in, nil
	}

	client, err := store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, contract.ErrClientNotFound) {
			return nil, fmt.Errorf("%w. Add it with `vitals clients add %s`", err, clientID)
		}
		return nil, fmt.Errorf("failed to load client %s: %w", clientID, err)
	}
	if !client.Active {
		return nil, fmt.Errorf("client %s is inactive", clientID)
	}
	in.client = client

	if client.Timezone != "" {
		loc, err := contract.LoadLocation(client.Timezone)
		if err != nil {
			return nil, fmt.Errorf("client %s: %w", clientID, err)
		}
		in.location = loc
	}

	if in.vitamins, err = store.ListVitaminLogs(ctx, clientID); err != nil {
		return nil, fmt.Errorf("failed to load vitamin logs for %s: %w", clientID, err)
	}
	if in.targets, err = store.GetTargets(ctx, clientID); err != nil {
		return nil, fmt.Errorf("failed to load targets for %s: %w", clientID, err)
	}
	return in, nil
}

// RunClient runs the pipeline for one client while holding the client's lock,
// then records the outcome in the run log. The returned run ID identifies the
// run log entry even when the run failed.
func RunClient(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, req RunRequest) (*schema.AnalyticsResult, string, error) {
	if req.ClientID == "" {
		return nil, "", errors.New("client id is required")
	}

	release, err := locker.Lock(ctx, runlock.ClientKey(req.ClientID))
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := release(); err != nil {
			contract.LogWarn("Failed to release run lock", err)
		}
	}()

	data := mgr.GetDataStore()
	inputs, err := loadClientInputs(ctx, cfg, data, req.ClientID)
	if err != nil {
		return nil, "", err
	}

	runID := uuid.NewString()
	started := time.Now().UTC()

	var result *schema.AnalyticsResult
	src, err := extract.Open(req.ExportPath, req.Format)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStructuralFailure, err)
	} else {
		result, err = Run(ctx, RunInput{
			ClientID:     req.ClientID,
			Source:       src,
			VitaminLogs:  inputs.vitamins,
			Targets:      inputs.targets,
			ProgramStart: inputs.client.ProgramStart,
			Location:     inputs.location,
			Derive: derive.Config{
				Weights:     cfg.Weights,
				TrendMetric: cfg.TrendMetric,
				WindowDays:  cfg.WindowDays,
			},
			DedupExact: cfg.DedupExact,
			Format:     cfg.ArtifactFormat,
			Store:      mgr.GetArtifactStore(),
		})
	}

	if data != nil {
		record := newRunRecord(runID, req.ClientID, started, result, err)
		// The run log is written even when the run itself was cancelled
		if recErr := data.RecordRun(context.WithoutCancel(ctx), record); recErr != nil {
			contract.LogWarn("Failed to record run", recErr)
		}
	}
	return result, runID, err
}

// newRunRecord builds the run log entry for a finished run.
func newRunRecord(runID, clientID string, started time.Time, result *schema.AnalyticsResult, err error) schema.RunRecord {
	record := schema.RunRecord{
		RunID:      runID,
		ClientID:   clientID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Status:     RunStatus(err),
	}
	if err != nil {
		record.Error = err.Error()
	}
	if result != nil {
		record.Read = result.Stats.Read
		record.Emitted = result.Stats.Emitted
		record.Skipped = result.Stats.Skipped
		record.Ignored = result.Stats.Ignored
		record.Rows = len(result.Rows)
		record.Periods = len(result.Periods)
		record.ContentHash = result.Artifact.ContentHash
	}
	return record
}

// ExecuteRun runs the pipeline for one client and prints the analytics table.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, req RunRequest) error {
	start := time.Now()
	contract.LogInfo("Running pipeline for client %s on %s", req.ClientID, req.ExportPath)

	result, runID, err := RunClient(ctx, cfg, mgr, locker, req)
	if err != nil {
		if runID != "" {
			return fmt.Errorf("run %s failed: %w", runID, err)
		}
		return err
	}
	if result.Stats.Truncated {
		contract.LogWarn("Export ended early", extract.ErrTruncated)
	}
	return outwriter.PrintRunResult(result, cfg, time.Since(start))
}

// RunBatch runs every request with a bounded pool of cfg.Workers goroutines.
// Items are returned in request order. Runs of the same client are serialized by the locker.
func RunBatch(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, reqs []RunRequest) []schema.BatchItem {
	items := make([]schema.BatchItem, len(reqs))
	workers := max(1, min(cfg.Workers, len(reqs)))

	idxCh := make(chan int, len(reqs))
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range idxCh {
				items[i] = runBatchItem(ctx, cfg, mgr, locker, reqs[i])
			}
		})
	}
	for i := range reqs {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()
	return items
}

// runBatchItem runs one request and summarizes it. Each goroutine writes its own index.
func runBatchItem(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, req RunRequest) schema.BatchItem {
	start := time.Now()
	result, runID, err := RunClient(ctx, cfg, mgr, locker, req)
	item := schema.BatchItem{
		ClientID:   req.ClientID,
		ExportPath: req.ExportPath,
		Status:     RunStatus(err),
		RunID:      runID,
		Duration:   time.Since(start),
	}
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Rows = len(result.Rows)
	item.Periods = len(result.Periods)
	item.Skipped = result.Stats.Skipped
	item.ContentHash = result.Artifact.ContentHash
	return item
}

// ExecuteBatch runs a manifest of requests and prints one line per run.
// It fails when any run failed, after every run has finished.
func ExecuteBatch(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, locker contract.Locker, reqs []RunRequest) error {
	if len(reqs) == 0 {
		return errors.New("batch manifest has no runs")
	}
	start := time.Now()
	contract.LogInfo("Running %d exports with %d workers", len(reqs), cfg.Workers)

	items := RunBatch(ctx, cfg, mgr, locker, reqs)
	if err := outwriter.PrintBatchResults(items, cfg, time.Since(start)); err != nil {
		return err
	}

	failed := 0
	for _, item := range items {
		if item.Status != schema.RunSucceeded {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(items))
	}
	return nil
}
