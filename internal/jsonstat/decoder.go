package jsonstat

import (
	"math"
	"strconv"
	"time"

	"github.com/tonnomolt/housing-prices-fi/internal/mapping"
)

// CanonicalRecord is one decoded price observation for a (year, postal code,
// building type) combination. Metric pointers are nil when the source marked
// the cell missing or confidential. Owned by the caller once returned.
type CanonicalRecord struct {
	AreaCode          string
	SourceCategory    string
	CanonicalCategory string
	PeriodStart       time.Time
	MeanPrice         *float64
	TransactionCount  *int64
	SourceName        string
}

// Result is the full outcome of one decode: the emitted records in
// deterministic order, how many cells were skipped, and the mapping table
// that was applied, for audit by the caller.
type Result struct {
	Records         []CanonicalRecord
	Skipped         int
	SourceName      string
	AppliedMappings []mapping.CategoryMapping
}

// Decode interprets a json-stat2 dataset payload and flattens it into
// canonical price records. It is a pure function of its inputs: no retained
// state, identical output (including record order) for identical inputs, and
// safe to call concurrently for different datasets.
//
// Structural problems abort the whole decode with a *SchemaError. Per-cell
// problems (a category code absent from the mapping table, or both tracked
// metrics unavailable) only increment the skip count.
func Decode(raw RawDataset, sourceName string, mappings []mapping.CategoryMapping) (*Result, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	period, area, category, metric, err := resolveAxes(env)
	if err != nil {
		return nil, err
	}

	meanPos := metric.indexOf(MetricMeanPrice)
	countPos := metric.indexOf(MetricTransactionCount)
	if meanPos < 0 && countPos < 0 {
		return nil, schemaErrorf("metric dimension %q contains neither %q nor %q", DimMetric, MetricMeanPrice, MetricTransactionCount)
	}

	// Every period code must be a plain year; a bad code would poison every
	// cell of that period, so it is a schema-level failure, not a skip.
	periodStarts := make([]time.Time, len(period.codes))
	for i, code := range period.codes {
		year, err := strconv.Atoi(code)
		if err != nil {
			return nil, schemaErrorf("period code %q is not a year", code)
		}
		periodStarts[i] = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	strides := computeStrides(env.Size)
	table := mapping.NewTable(mappings)

	result := &Result{
		SourceName:      sourceName,
		AppliedMappings: mappings,
	}

	// Traversal covers period × area × category, ascending positions with
	// period outermost; the metric dimension is resolved per cell by offset
	// arithmetic rather than iterated.
	indices := make([]int, len(env.ID))
	valueAt := func(offset int) *float64 {
		// An override entry always forces the cell unavailable, even when
		// the literal array slot holds a concrete number.
		if _, masked := env.Status[strconv.Itoa(offset)]; masked {
			return nil
		}
		if offset >= len(env.Value) {
			return nil
		}
		return env.Value[offset]
	}

	for pi := range period.codes {
		indices[period.position] = pi
		for ai := range area.codes {
			indices[area.position] = ai
			for ci := range category.codes {
				indices[category.position] = ci

				canonical, mapped := table.Lookup(category.codes[ci])
				if !mapped {
					result.Skipped++
					continue
				}

				var meanPrice *float64
				if meanPos >= 0 {
					indices[metric.position] = meanPos
					meanPrice = valueAt(offsetFor(indices, strides))
				}
				var txCount *int64
				if countPos >= 0 {
					indices[metric.position] = countPos
					if v := valueAt(offsetFor(indices, strides)); v != nil {
						n := int64(math.Round(*v))
						txCount = &n
					}
				}

				if meanPrice == nil && txCount == nil {
					result.Skipped++
					continue
				}

				result.Records = append(result.Records, CanonicalRecord{
					AreaCode:          area.codes[ai],
					SourceCategory:    category.codes[ci],
					CanonicalCategory: canonical,
					PeriodStart:       periodStarts[pi],
					MeanPrice:         meanPrice,
					TransactionCount:  txCount,
					SourceName:        sourceName,
				})
			}
		}
	}

	return result, nil
}
