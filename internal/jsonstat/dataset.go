package jsonstat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatJSONStat2 is the only payload format the decoder understands.
const FormatJSONStat2 = "json-stat2"

// Dimension role names as published by the upstream statistics table. Roles
// are identified by these names, never by position in the envelope.
const (
	DimPeriod   = "Vuosi"       // statistical year
	DimArea     = "Postinumero" // postal code area
	DimCategory = "Talotyyppi"  // building type
	DimMetric   = "Tiedot"      // measure selector
)

// Tracked metric codes within the metric dimension. At least one must be
// present in a dataset; either may be absent independently.
const (
	MetricMeanPrice        = "keskihinta" // mean price per square metre
	MetricTransactionCount = "lkm"        // number of transactions
)

// RawDataset is the payload handed to the decoder by the dataset fetch
// adapter. The decoder treats it as read-only.
type RawDataset struct {
	Format string
	Body   []byte
	Title  string
}

// SchemaError is a fatal decode error: the payload does not describe a
// dataset the decoder can interpret. Per-cell conditions (unmapped category,
// wholly missing metrics) never produce a SchemaError.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "dataset schema error: " + e.Reason
}

func schemaErrorf(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}

// envelope mirrors the json-stat2 document shape: an ordered dimension list,
// parallel cardinalities, per-dimension category metadata, the flat value
// array, and a sparse status map keyed by stringified flat offset.
type envelope struct {
	Class     string                       `json:"class"`
	Label     string                       `json:"label"`
	ID        []string                     `json:"id"`
	Size      []int                        `json:"size"`
	Dimension map[string]envelopeDimension `json:"dimension"`
	Value     []*float64                   `json:"value"`
	Status    map[string]string            `json:"status"`
}

type envelopeDimension struct {
	Label    string           `json:"label"`
	Category envelopeCategory `json:"category"`
}

type envelopeCategory struct {
	Index map[string]int    `json:"index"`
	Label map[string]string `json:"label"`
}

// axis is one resolved dimension of the dataset: where it sits in the
// declared order, its stride, and its position-ordered category codes.
type axis struct {
	name     string
	position int
	size     int
	codes    []string
}

func parseEnvelope(raw RawDataset) (*envelope, error) {
	if raw.Format != FormatJSONStat2 {
		return nil, schemaErrorf("unsupported payload format %q, want %q", raw.Format, FormatJSONStat2)
	}
	var env envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		return nil, schemaErrorf("payload body is not valid JSON: %v", err)
	}
	if env.Class != "dataset" {
		return nil, schemaErrorf("payload class is %q, want \"dataset\"", env.Class)
	}
	if len(env.ID) != len(env.Size) {
		return nil, schemaErrorf("dimension list has %d entries but size list has %d", len(env.ID), len(env.Size))
	}
	return &env, nil
}

// resolveAxes locates the four required dimension roles by name and builds
// each one's ordered category-code list. The position-to-code ordering is
// load-bearing: the traversal and offset arithmetic depend on it.
func resolveAxes(env *envelope) (period, area, category, metric *axis, err error) {
	positions := make(map[string]int, len(env.ID))
	for i, name := range env.ID {
		positions[name] = i
	}

	var missing []string
	for _, name := range []string{DimPeriod, DimArea, DimCategory, DimMetric} {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, nil, nil, schemaErrorf("required dimensions missing: %s", strings.Join(missing, ", "))
	}

	build := func(name string) (*axis, error) {
		pos := positions[name]
		dim, ok := env.Dimension[name]
		if !ok || dim.Category.Index == nil {
			return nil, schemaErrorf("dimension %q has no category index", name)
		}
		size := env.Size[pos]
		if len(dim.Category.Index) != size {
			return nil, schemaErrorf("dimension %q declares size %d but its category index has %d entries", name, size, len(dim.Category.Index))
		}
		codes := make([]string, size)
		seen := make([]bool, size)
		for code, idx := range dim.Category.Index {
			if idx < 0 || idx >= size {
				return nil, schemaErrorf("dimension %q: category %q has position %d outside [0,%d)", name, code, idx, size)
			}
			if seen[idx] {
				return nil, schemaErrorf("dimension %q: duplicate category position %d", name, idx)
			}
			seen[idx] = true
			codes[idx] = code
		}
		return &axis{name: name, position: pos, size: size, codes: codes}, nil
	}

	if period, err = build(DimPeriod); err != nil {
		return nil, nil, nil, nil, err
	}
	if area, err = build(DimArea); err != nil {
		return nil, nil, nil, nil, err
	}
	if category, err = build(DimCategory); err != nil {
		return nil, nil, nil, nil, err
	}
	if metric, err = build(DimMetric); err != nil {
		return nil, nil, nil, nil, err
	}
	return period, area, category, metric, nil
}

// indexOf returns the position of a category code within the axis, or -1.
func (a *axis) indexOf(code string) int {
	for i, c := range a.codes {
		if c == code {
			return i
		}
	}
	return -1
}
