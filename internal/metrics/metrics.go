package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsUpserted counts price records written to storage.
	RecordsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_prices_records_upserted_total",
		Help: "Number of decoded price records upserted into storage.",
	})

	// CellsSkipped counts dataset cells that produced no record: unmapped
	// category codes and cells whose tracked metrics were all unavailable.
	CellsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_prices_cells_skipped_total",
		Help: "Number of dataset cells skipped during decoding.",
	})

	// IngestRuns counts ingestion runs by source and outcome.
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housing_prices_ingest_runs_total",
		Help: "Number of ingestion runs by source and status.",
	}, []string{"source", "status"})
)
