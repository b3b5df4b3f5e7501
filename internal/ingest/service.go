package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tonnomolt/housing-prices-fi/internal/config"
	"github.com/tonnomolt/housing-prices-fi/internal/jsonstat"
	"github.com/tonnomolt/housing-prices-fi/internal/metrics"
	"github.com/tonnomolt/housing-prices-fi/internal/statapi"
	"github.com/tonnomolt/housing-prices-fi/internal/store"
)

// MetadataFetcher fetches a statistics table's title and variable list.
type MetadataFetcher interface {
	GetTableMetadata(ctx context.Context, tableURL string) (*statapi.TableMetadata, error)
}

// DatasetFetcher fetches the raw dataset payload for a selection query.
type DatasetFetcher interface {
	QueryDataset(ctx context.Context, tableURL string, query statapi.Query) (*jsonstat.RawDataset, error)
}

// RecordStore is the persistence sink for decoded records and run audits.
type RecordStore interface {
	UpsertRecords(ctx context.Context, records []jsonstat.CanonicalRecord) (int, error)
	SaveRun(ctx context.Context, run store.IngestionRun) error
}

// Service runs the ingestion pipeline for configured sources:
// fetch metadata, query the full dataset, decode, upsert, record the run.
type Service struct {
	metadata MetadataFetcher
	datasets DatasetFetcher
	store    RecordStore
}

// NewService creates an ingestion service.
func NewService(metadata MetadataFetcher, datasets DatasetFetcher, recordStore RecordStore) *Service {
	return &Service{
		metadata: metadata,
		datasets: datasets,
		store:    recordStore,
	}
}

// RunSummary reports the outcome of one ingestion run.
type RunSummary struct {
	RunID      string `json:"run_id"`
	Source     string `json:"source"`
	TableTitle string `json:"table_title"`
	Records    int    `json:"records"`
	Skipped    int    `json:"skipped"`
}

// IngestSource runs the full pipeline for one configured source. Decoder
// skip counts are reported in the summary, never as errors; the caller
// decides whether a non-zero skip count is acceptable.
func (s *Service) IngestSource(ctx context.Context, src config.Source) (*RunSummary, error) {
	log.Printf("Starting ingestion for source %s from %s", src.Name, src.TableURL)

	fail := func(err error) (*RunSummary, error) {
		metrics.IngestRuns.WithLabelValues(src.Name, "failure").Inc()
		return nil, err
	}

	md, err := s.metadata.GetTableMetadata(ctx, src.TableURL)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch metadata for source %s: %w", src.Name, err))
	}
	log.Printf("Fetched metadata for source %s: %q with %d variables", src.Name, md.Title, len(md.Variables))

	raw, err := s.datasets.QueryDataset(ctx, src.TableURL, statapi.BuildFullQuery(md))
	if err != nil {
		return fail(fmt.Errorf("failed to fetch dataset for source %s: %w", src.Name, err))
	}
	raw.Title = md.Title

	result, err := jsonstat.Decode(*raw, src.Name, src.Mappings)
	if err != nil {
		return fail(fmt.Errorf("failed to decode dataset for source %s: %w", src.Name, err))
	}

	written, err := s.store.UpsertRecords(ctx, result.Records)
	if err != nil {
		return fail(fmt.Errorf("failed to store records for source %s: %w", src.Name, err))
	}

	mappingsJSON, err := json.Marshal(result.AppliedMappings)
	if err != nil {
		return fail(fmt.Errorf("failed to marshal applied mappings for source %s: %w", src.Name, err))
	}

	run := store.IngestionRun{
		ID:           uuid.NewString(),
		Source:       src.Name,
		RecordCount:  written,
		SkippedCount: result.Skipped,
		MappingsJSON: string(mappingsJSON),
		RanAt:        time.Now().UTC(),
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return fail(fmt.Errorf("failed to save run audit for source %s: %w", src.Name, err))
	}

	metrics.RecordsUpserted.Add(float64(written))
	metrics.CellsSkipped.Add(float64(result.Skipped))
	metrics.IngestRuns.WithLabelValues(src.Name, "success").Inc()

	log.Printf("Ingestion for source %s complete: %d records upserted, %d cells skipped", src.Name, written, result.Skipped)
	return &RunSummary{
		RunID:      run.ID,
		Source:     src.Name,
		TableTitle: md.Title,
		Records:    written,
		Skipped:    result.Skipped,
	}, nil
}
