package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tonnomolt/housing-prices-fi/internal/jsonstat"
)

// Store is the persistence sink and read-query layer over a gorm database.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the schema for all stored models.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&PriceRecord{}, &CanonicalCategory{}, &IngestionRun{}); err != nil {
		return fmt.Errorf("failed to auto-migrate schema: %w", err)
	}
	return nil
}

// UpsertRecords stores decoded records idempotently: rows are keyed by
// (area, category, period, source) and conflicting rows only have their
// metric columns updated. Returns the number of rows written.
func (s *Store) UpsertRecords(ctx context.Context, records []jsonstat.CanonicalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]PriceRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, PriceRecord{
			AreaCode:         rec.AreaCode,
			CategoryCode:     rec.CanonicalCategory,
			PeriodStart:      rec.PeriodStart,
			Source:           rec.SourceName,
			SourceCategory:   rec.SourceCategory,
			MeanPrice:        rec.MeanPrice,
			TransactionCount: rec.TransactionCount,
		})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "area_code"},
			{Name: "category_code"},
			{Name: "period_start"},
			{Name: "source"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"source_category", "mean_price", "transaction_count", "updated_at",
		}),
	}).CreateInBatches(rows, 500).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %d price records: %w", len(rows), err)
	}
	return len(rows), nil
}

// SaveRun persists an ingestion-run audit row.
func (s *Store) SaveRun(ctx context.Context, run IngestionRun) error {
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save ingestion run %s: %w", run.ID, err)
	}
	return nil
}

// SeedCategories upserts the canonical category reference data.
func (s *Store) SeedCategories(ctx context.Context, categories []CanonicalCategory) error {
	if len(categories) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&categories).Error
	if err != nil {
		return fmt.Errorf("failed to seed canonical categories: %w", err)
	}
	return nil
}

// DistinctPeriods returns every stored period start, ascending.
func (s *Store) DistinctPeriods(ctx context.Context) ([]time.Time, error) {
	var periods []time.Time
	err := s.db.WithContext(ctx).
		Model(&PriceRecord{}).
		Distinct("period_start").
		Order("period_start asc").
		Pluck("period_start", &periods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct periods: %w", err)
	}
	return periods, nil
}

// Categories returns the canonical category reference data, ordered by code.
func (s *Store) Categories(ctx context.Context) ([]CanonicalCategory, error) {
	var categories []CanonicalCategory
	err := s.db.WithContext(ctx).Order("code asc").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical categories: %w", err)
	}
	return categories, nil
}

// PricesForArea returns stored observations for one postal code area,
// optionally narrowed to a single canonical category, with the year-over-year
// mean price change computed against the previous year's observation of the
// same (category, source). Rows are ordered by period, then category, then
// source.
func (s *Store) PricesForArea(ctx context.Context, areaCode, categoryCode string) ([]PricePoint, error) {
	query := s.db.WithContext(ctx).
		Where("area_code = ?", areaCode).
		Order("category_code asc").Order("source asc").Order("period_start asc")
	if categoryCode != "" {
		query = query.Where("category_code = ?", categoryCode)
	}

	var rows []PriceRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query prices for area %s: %w", areaCode, err)
	}

	points := make([]PricePoint, 0, len(rows))
	// prevMean tracks the previous year's mean price per (category, source);
	// rows arrive grouped by category and source, ascending period.
	type seriesKey struct{ category, source string }
	prevMean := make(map[seriesKey]struct {
		year int
		mean *float64
	})
	for _, row := range rows {
		point := PricePoint{
			AreaCode:         row.AreaCode,
			CategoryCode:     row.CategoryCode,
			Source:           row.Source,
			PeriodStart:      row.PeriodStart,
			MeanPrice:        row.MeanPrice,
			TransactionCount: row.TransactionCount,
		}
		key := seriesKey{row.CategoryCode, row.Source}
		if prev, ok := prevMean[key]; ok &&
			prev.year == row.PeriodStart.Year()-1 &&
			prev.mean != nil && *prev.mean != 0 && row.MeanPrice != nil {
			change := (*row.MeanPrice - *prev.mean) / *prev.mean * 100
			point.ChangePct = &change
		}
		prevMean[key] = struct {
			year int
			mean *float64
		}{row.PeriodStart.Year(), row.MeanPrice}
		points = append(points, point)
	}

	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].PeriodStart.Equal(points[j].PeriodStart) {
			return points[i].PeriodStart.Before(points[j].PeriodStart)
		}
		if points[i].CategoryCode != points[j].CategoryCode {
			return points[i].CategoryCode < points[j].CategoryCode
		}
		return points[i].Source < points[j].Source
	})
	return points, nil
}
