package lookup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Forest factor CSV columns.
const (
	ColumnRegion            = "ForestAgeTypeRegion"
	ColumnNonforestToForest = "Nonforest to Forest Removal Factor"
	ColumnRemainingForest   = "Forests Remaining Forest Removal Factor"
	ColumnFire              = "Fire Emissions Factor"
	ColumnInsect            = "Insect Emissions Factor"
	ColumnHarvest           = "Harvest Emissions Factor"
)

// ForestFactors are per-hectare carbon factors (t C/ha) for one forest
// age-type region. Removal factors are annual and non-positive; emission
// factors cover the whole disturbance and are non-negative.
type ForestFactors struct {
	NonforestToForest float64 `json:"nonforest_to_forest"`
	RemainingForest   float64 `json:"remaining_forest"`
	Fire              float64 `json:"fire"`
	Insect            float64 `json:"insect"`
	Harvest           float64 `json:"harvest"`
}

// Emission returns the emission factor of disturbance d.
func (f ForestFactors) Emission(d Disturbance) float64 {
	switch d {
	case Fire:
		return f.Fire
	case InsectDamage:
		return f.Insect
	case Harvest:
		return f.Harvest
	}
	return 0
}

// Validate enforces the factor sign conventions.
func (f ForestFactors) Validate() error {
	removals := map[string]float64{
		ColumnNonforestToForest: f.NonforestToForest,
		ColumnRemainingForest:   f.RemainingForest,
	}
	emissions := map[string]float64{
		ColumnFire:    f.Fire,
		ColumnInsect:  f.Insect,
		ColumnHarvest: f.Harvest,
	}

	var errs []error
	for col, v := range removals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v > 0 {
			errs = append(errs, fmt.Errorf("%w: %s = %v, want <= 0", ErrInvalidFactor, col, v))
		}
	}
	for col, v := range emissions {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			errs = append(errs, fmt.Errorf("%w: %s = %v, want >= 0", ErrInvalidFactor, col, v))
		}
	}
	return errors.Join(errs...)
}

// ReadForestFactors parses a forest factor CSV keyed by ForestAgeTypeRegion.
// Columns are located by header name; extra columns are ignored.
func ReadForestFactors(r io.Reader) (*Table[int32, ForestFactors], error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrInvalidTable, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	columns := []string{
		ColumnRegion, ColumnNonforestToForest, ColumnRemainingForest,
		ColumnFire, ColumnInsect, ColumnHarvest,
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidTable, col)
		}
	}

	entries := map[int32]ForestFactors{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidTable, line, err)
		}

		values := make(map[string]float64, len(columns))
		for _, col := range columns {
			raw := strings.TrimSpace(rec[index[col]])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %w", ErrInvalidTable, line, col, err)
			}
			values[col] = v
		}

		region := int32(values[ColumnRegion])
		if _, dup := entries[region]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate region %d", ErrInvalidTable, line, region)
		}

		entries[region] = ForestFactors{
			NonforestToForest: values[ColumnNonforestToForest],
			RemainingForest:   values[ColumnRemainingForest],
			Fire:              values[ColumnFire],
			Insect:            values[ColumnInsect],
			Harvest:           values[ColumnHarvest],
		}
	}

	return NewTable("forest_factors", entries), nil
}

// LoadForestFactors reads the forest factor CSV at path.
func LoadForestFactors(path string) (*Table[int32, ForestFactors], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open forest factors: %w", err)
	}
	defer f.Close()

	return ReadForestFactors(f)
}
