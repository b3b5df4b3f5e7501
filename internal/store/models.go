package store

import "time"

// PriceRecord is one stored price observation. The composite unique index is
// the upsert key: re-running a decode for the same source only updates the
// metric columns, it never creates duplicate rows.
type PriceRecord struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	AreaCode         string    `gorm:"size:16;not null;uniqueIndex:idx_price_record_key" json:"area_code"`
	CategoryCode     string    `gorm:"size:64;not null;uniqueIndex:idx_price_record_key" json:"category_code"`
	PeriodStart      time.Time `gorm:"not null;uniqueIndex:idx_price_record_key" json:"period_start"`
	Source           string    `gorm:"size:64;not null;uniqueIndex:idx_price_record_key" json:"source"`
	SourceCategory   string    `gorm:"size:64" json:"source_category"`
	MeanPrice        *float64  `json:"mean_price"`
	TransactionCount *int64    `json:"transaction_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CanonicalCategory is reference data: the source-independent building type
// codes every source's raw category codes are mapped to.
type CanonicalCategory struct {
	Code string `gorm:"primaryKey;size:64" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// IngestionRun records one decode-and-store run, including the mapping table
// that was applied, so runs can be audited per source.
type IngestionRun struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Source       string    `gorm:"size:64;not null;index" json:"source"`
	RecordCount  int       `json:"record_count"`
	SkippedCount int       `json:"skipped_count"`
	MappingsJSON string    `json:"mappings_json"`
	RanAt        time.Time `json:"ran_at"`
}

// PricePoint is the read-API row shape: a stored observation together with
// its year-over-year mean price change, when the previous year is available.
type PricePoint struct {
	AreaCode         string    `json:"area_code"`
	CategoryCode     string    `json:"category_code"`
	Source           string    `json:"source"`
	PeriodStart      time.Time `json:"period_start"`
	MeanPrice        *float64  `json:"mean_price"`
	TransactionCount *int64    `json:"transaction_count"`
	ChangePct        *float64  `json:"change_pct"`
}
