package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tonnomolt/housing-prices-fi/internal/jsonstat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open in-memory sqlite")

	s := New(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func year(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func record(areaCode, canonical string, y int, mean *float64, count *int64) jsonstat.CanonicalRecord {
	return jsonstat.CanonicalRecord{
		AreaCode:          areaCode,
		SourceCategory:    "1",
		CanonicalCategory: canonical,
		PeriodStart:       year(y),
		MeanPrice:         mean,
		TransactionCount:  count,
		SourceName:        "statfi",
	}
}

func TestUpsertRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("Empty input writes nothing", func(t *testing.T) {
		n, err := s.UpsertRecords(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Duplicate runs update values without duplicating rows", func(t *testing.T) {
		records := []jsonstat.CanonicalRecord{
			record("00400", "apartment_block_1r", 2024, fptr(4668.0), iptr(29)),
			record("00400", "apartment_block_2r", 2024, fptr(3825.5), iptr(14)),
		}
		n, err := s.UpsertRecords(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Second run with an updated mean price for the first key.
		records[0].MeanPrice = fptr(4700.0)
		_, err = s.UpsertRecords(ctx, records)
		require.NoError(t, err)

		var count int64
		require.NoError(t, s.db.Model(&PriceRecord{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)

		var row PriceRecord
		require.NoError(t, s.db.Where(
			"area_code = ? AND category_code = ?", "00400", "apartment_block_1r",
		).First(&row).Error)
		require.NotNil(t, row.MeanPrice)
		assert.Equal(t, 4700.0, *row.MeanPrice)
	})

	t.Run("Null metrics are stored as nulls", func(t *testing.T) {
		_, err := s.UpsertRecords(ctx, []jsonstat.CanonicalRecord{
			record("00500", "apartment_block_1r", 2024, nil, iptr(7)),
		})
		require.NoError(t, err)

		var row PriceRecord
		require.NoError(t, s.db.Where("area_code = ?", "00500").First(&row).Error)
		assert.Nil(t, row.MeanPrice)
		require.NotNil(t, row.TransactionCount)
		assert.Equal(t, int64(7), *row.TransactionCount)
	})
}

func TestDistinctPeriods(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertRecords(ctx, []jsonstat.CanonicalRecord{
		record("00100", "apartment_block_1r", 2024, fptr(5000), nil),
		record("00200", "apartment_block_1r", 2024, fptr(4000), nil),
		record("00100", "apartment_block_1r", 2022, fptr(4500), nil),
		record("00100", "apartment_block_1r", 2023, fptr(4800), nil),
	})
	require.NoError(t, err)

	periods, err := s.DistinctPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, 2022, periods[0].Year())
	assert.Equal(t, 2023, periods[1].Year())
	assert.Equal(t, 2024, periods[2].Year())
}

func TestSeedCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	categories := []CanonicalCategory{
		{Code: "terraced_house", Name: "Terraced houses"},
		{Code: "apartment_block_1r", Name: "Blocks of flats, one room"},
	}
	require.NoError(t, s.SeedCategories(ctx, categories))

	// Re-seeding with a renamed category must not duplicate rows.
	categories[0].Name = "Terraced and semi-detached houses"
	require.NoError(t, s.SeedCategories(ctx, categories))

	got, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "apartment_block_1r", got[0].Code)
	assert.Equal(t, "terraced_house", got[1].Code)
	assert.Equal(t, "Terraced and semi-detached houses", got[1].Name)
}

func TestSaveRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := IngestionRun{
		ID:           "f6c7a9e2-0000-0000-0000-000000000001",
		Source:       "statfi",
		RecordCount:  4,
		SkippedCount: 1,
		MappingsJSON: `[{"source_code":"1","canonical_code":"apartment_block_1r"}]`,
		RanAt:        time.Now().UTC(),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	var got IngestionRun
	require.NoError(t, s.db.First(&got, "id = ?", run.ID).Error)
	assert.Equal(t, "statfi", got.Source)
	assert.Equal(t, 4, got.RecordCount)
	assert.Equal(t, 1, got.SkippedCount)
}

func TestPricesForArea(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertRecords(ctx, []jsonstat.CanonicalRecord{
		record("00400", "apartment_block_1r", 2023, fptr(1000), iptr(10)),
		record("00400", "apartment_block_1r", 2024, fptr(1100), iptr(12)),
		record("00400", "apartment_block_2r", 2024, fptr(2000), iptr(5)),
		// Gap year: 2022 exists, 2023 missing, so 2024 has no change figure.
		record("00400", "terraced_house", 2022, fptr(3000), nil),
		record("00400", "terraced_house", 2024, fptr(3300), nil),
		// Different area must not leak in.
		record("00999", "apartment_block_1r", 2024, fptr(9999), nil),
	})
	require.NoError(t, err)

	t.Run("All categories with change", func(t *testing.T) {
		points, err := s.PricesForArea(ctx, "00400", "")
		require.NoError(t, err)
		require.Len(t, points, 5)

		// Ordered by period, then category.
		assert.Equal(t, 2022, points[0].PeriodStart.Year())
		assert.Equal(t, "terraced_house", points[0].CategoryCode)
		assert.Equal(t, 2023, points[1].PeriodStart.Year())
		assert.Equal(t, "apartment_block_1r", points[1].CategoryCode)

		byKey := func(category string, y int) PricePoint {
			for _, p := range points {
				if p.CategoryCode == category && p.PeriodStart.Year() == y {
					return p
				}
			}
			t.Fatalf("no point for %s/%d", category, y)
			return PricePoint{}
		}

		withChange := byKey("apartment_block_1r", 2024)
		require.NotNil(t, withChange.ChangePct)
		assert.InDelta(t, 10.0, *withChange.ChangePct, 1e-9)

		firstYear := byKey("apartment_block_1r", 2023)
		assert.Nil(t, firstYear.ChangePct)

		gapYear := byKey("terraced_house", 2024)
		assert.Nil(t, gapYear.ChangePct, "a gap year must not produce a change figure")

		singleYear := byKey("apartment_block_2r", 2024)
		assert.Nil(t, singleYear.ChangePct)
	})

	t.Run("Category filter", func(t *testing.T) {
		points, err := s.PricesForArea(ctx, "00400", "apartment_block_1r")
		require.NoError(t, err)
		require.Len(t, points, 2)
		for _, p := range points {
			assert.Equal(t, "apartment_block_1r", p.CategoryCode)
		}
	})

	t.Run("Unknown area yields empty result", func(t *testing.T) {
		points, err := s.PricesForArea(ctx, "99999", "")
		require.NoError(t, err)
		assert.Empty(t, points)
	})
}
