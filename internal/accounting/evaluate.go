package accounting

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/raster"
	"github.com/JaimeStill/landflux/pkg/zonal"
)

// ErrMissingLayer indicates a required layer was not supplied.
var ErrMissingLayer = errors.New("required layer missing")

// cancelCheck is how many cells are processed between context checks.
const cancelCheck = 1 << 14

type recordKey struct {
	source      Source
	category    Category
	disturbance lookup.Disturbance
	from, to    int32
}

type accumulator struct {
	rec       Record
	weight    float64
	canopy    float64
	loss      float64
	plantable float64
}

type forestKey struct {
	region      int32
	source      Source
	category    Category
	disturbance lookup.Disturbance
}

type forestAccumulator struct {
	cells  int64
	weight float64
}

type stratumKey struct {
	stratum  string
	label    string
	category Category
}

type evaluator struct {
	unit    Unit
	layers  Layers
	tables  *lookup.Tables
	opts    Options
	cellHa  float64
	rank    map[lookup.Disturbance]int
	factors map[int32]lookup.ForestFactors

	res     *Result
	records map[recordKey]*accumulator
	forest  map[forestKey]*forestAccumulator
	strata  map[stratumKey]int64
	attr    []float64
}

// Evaluate computes the transition matrix and flux records of one unit.
// Input and lookup failures are returned as *InputError, *LookupError or
// *ZoneError and concern only this unit; a *ComputationError invalidates
// the run.
func Evaluate(ctx context.Context, unit Unit, layers Layers, tables *lookup.Tables, opts Options) (*Result, error) {
	if unit.Period.Years() <= 0 {
		return nil, &ComputationError{Zone: unit.Zone.ID, Period: unit.Period, Detail: "non-positive year span"}
	}
	if !(opts.CarbonToCO2 > 0) || math.IsInf(opts.CarbonToCO2, 0) {
		return nil, &ComputationError{Zone: unit.Zone.ID, Period: unit.Period, Detail: fmt.Sprintf("invalid carbon to CO2 ratio %v", opts.CarbonToCO2)}
	}

	if layers.From == nil {
		return nil, &InputError{Zone: unit.Zone.ID, Period: unit.Period, Layer: "land_cover_start", Err: ErrMissingLayer}
	}
	if layers.To == nil {
		return nil, &InputError{Zone: unit.Zone.ID, Period: unit.Period, Layer: "land_cover_end", Err: ErrMissingLayer}
	}

	def := layers.From.Definition
	for _, nl := range layers.named() {
		if nl.r == nil {
			continue
		}
		if err := def.Aligned(nl.r.Definition); err != nil {
			return nil, &InputError{Zone: unit.Zone.ID, Period: unit.Period, Layer: nl.name, Err: err}
		}
	}

	mask := gis.Mask(def, unit.Zone.Geometry)
	if len(mask) == 0 {
		return nil, &ZoneError{Zone: unit.Zone.ID, Period: unit.Period, Err: ErrNoOverlap}
	}

	e := newEvaluator(unit, layers, tables, opts)
	if opts.Attribution {
		e.attr = make([]float64, len(mask))
	}

	for n, i := range mask {
		if n%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		code, err := e.cell(i)
		if err != nil {
			return nil, err
		}
		if e.attr != nil {
			e.attr[n] = code
		}
	}

	if err := e.finish(); err != nil {
		return nil, err
	}
	e.res.Density = poolDensity(layers.Pools, mask)

	if opts.Attribution {
		grid, err := attributionGrid(layers.From, mask, e.attr)
		if err != nil {
			return nil, &ComputationError{Zone: unit.Zone.ID, Period: unit.Period, Detail: err.Error()}
		}
		e.res.Attribution = grid
	}
	return e.res, nil
}

func poolDensity(p Pools, mask []int) []PoolDensity {
	var out []PoolDensity
	for _, nl := range []namedLayer{
		{"biomass", p.Biomass},
		{"dead_organic_matter", p.DeadOrganicMatter},
		{"soil_organic", p.SoilOrganic},
	} {
		if nl.r == nil {
			continue
		}
		out = append(out, PoolDensity{Pool: nl.name, Stats: zonal.Aggregate(nl.r, mask)})
	}
	return out
}

func newEvaluator(unit Unit, layers Layers, tables *lookup.Tables, opts Options) *evaluator {
	priority := opts.Priority
	if len(priority) == 0 {
		priority = lookup.DefaultPriority
	}
	rank := make(map[lookup.Disturbance]int, len(priority))
	for i, d := range priority {
		if _, dup := rank[d]; !dup {
			rank[d] = i
		}
	}

	return &evaluator{
		unit:    unit,
		layers:  layers,
		tables:  tables,
		opts:    opts,
		cellHa:  zonal.CellHectares(layers.From.CellSize),
		rank:    rank,
		factors: make(map[int32]lookup.ForestFactors),
		res: &Result{
			Unit:     unit,
			Matrix:   Matrix{},
			CellSize: layers.From.CellSize,
		},
		records: make(map[recordKey]*accumulator),
		forest:  make(map[forestKey]*forestAccumulator),
		strata:  make(map[stratumKey]int64),
	}
}

// cell attributes one cell and returns its attribution code.
func (e *evaluator) cell(i int) (float64, error) {
	from, okFrom := e.layers.From.Class(i)
	to, okTo := e.layers.To.Class(i)
	if !okFrom || !okTo {
		e.res.ExcludedCells++
		return AttributionNoData, nil
	}

	e.res.Cells++
	e.res.Matrix[Transition{From: from, To: to}]++

	fromClass, fromParent, err := e.tables.Parent(from)
	if err != nil {
		return 0, lookupError(e.unit, err)
	}
	toClass, toParent, err := e.tables.Parent(to)
	if err != nil {
		return 0, lookupError(e.unit, err)
	}

	dist, err := e.disturbance(i)
	if err != nil {
		return 0, err
	}

	if fromParent == lookup.Forestland && dist != "" {
		key := recordKey{source: Disturbance, category: ForestRemainingForest, disturbance: dist}
		acc := e.record(key, Record{
			Source:      Disturbance,
			Category:    ForestRemainingForest,
			Disturbance: dist,
			FromParent:  lookup.Forestland,
			ToParent:    toParent,
		})
		e.observe(acc, i)

		region, f, ok, err := e.forestFactors(i)
		if err != nil {
			return 0, err
		}
		if ok {
			w := f.Emission(dist)
			acc.weight += w
			e.addForest(forestKey{region, Disturbance, ForestRemainingForest, dist}, w)
		}
		e.addStrata(i, ForestRemainingForest)
		return disturbanceCode(dist), nil
	}

	category, _ := Categorize(fromParent, toParent)
	key := recordKey{source: LandCover, category: category, from: from, to: to}
	acc := e.record(key, Record{
		Source:     LandCover,
		Category:   category,
		FromCode:   from,
		ToCode:     to,
		FromClass:  fromClass,
		ToClass:    toClass,
		FromParent: fromParent,
		ToParent:   toParent,
	})
	e.observe(acc, i)

	var w float64
	switch category {
	case ForestRemainingForest, NonforestToForest:
		region, f, ok, err := e.forestFactors(i)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		w = f.RemainingForest
		if category == NonforestToForest {
			w = f.NonforestToForest
		}
		acc.weight += w
		e.addForest(forestKey{region, LandCover, category, ""}, w)
		e.addStrata(i, category)
	case ForestToSettlement, ForestToOtherLand, ForestToCropland, ForestToGrassland, ForestToWetland:
		loss, err := e.tables.StockLoss.Get(toParent)
		if err != nil {
			return 0, lookupError(e.unit, err)
		}
		w = e.density(i, loss)
		acc.weight += w
		if e.layers.ForestType != nil {
			if region, ok := e.layers.ForestType.Class(i); ok {
				e.addForest(forestKey{region, LandCover, category, ""}, w)
			}
		}
		e.addStrata(i, category)
	}

	return landCoverCode(category, w), nil
}

func (e *evaluator) record(key recordKey, proto Record) *accumulator {
	acc, ok := e.records[key]
	if !ok {
		proto.Zone = e.unit.Zone.ID
		proto.Period = e.unit.Period
		acc = &accumulator{rec: proto}
		e.records[key] = acc
	}
	return acc
}

// observe counts the cell and adds its canopy and plantable values.
func (e *evaluator) observe(acc *accumulator, i int) {
	acc.rec.Cells++

	if e.layers.CanopyFrom != nil && e.layers.CanopyTo != nil {
		c1, ok1 := e.layers.CanopyFrom.Value(i)
		c2, ok2 := e.layers.CanopyTo.Value(i)
		if ok1 && ok2 {
			acc.canopy += (c1 + c2) / 2
			if c2 < c1 {
				acc.loss += c1 - c2
			}
		}
	}
	if e.layers.Plantable != nil {
		if v, ok := e.layers.Plantable.Value(i); ok {
			acc.plantable += v
		}
	}
}

// disturbance returns the highest-priority disturbance present at cell i,
// or "" when none is. Code 0 means undisturbed.
func (e *evaluator) disturbance(i int) (lookup.Disturbance, error) {
	var (
		best     lookup.Disturbance
		bestRank = math.MaxInt
	)

	for _, layer := range e.layers.Disturbances {
		code, ok := layer.Class(i)
		if !ok || code == 0 {
			continue
		}
		typ, err := e.tables.Disturbances.Get(code)
		if err != nil {
			return "", lookupError(e.unit, err)
		}
		rank, ranked := e.rank[typ]
		if !ranked {
			rank = len(e.rank)
		}
		if rank < bestRank {
			best, bestRank = typ, rank
		}
	}
	return best, nil
}

// forestFactors resolves the factors for the forest type at cell i. ok is
// false when the forest type layer has no data there; such cells are
// counted as unfactored.
func (e *evaluator) forestFactors(i int) (int32, lookup.ForestFactors, bool, error) {
	var region int32
	if e.layers.ForestType != nil {
		code, ok := e.layers.ForestType.Class(i)
		if !ok {
			e.res.UnfactoredCells++
			return 0, lookup.ForestFactors{}, false, nil
		}
		region = code
	}

	if f, ok := e.factors[region]; ok {
		return region, f, true, nil
	}

	f, err := e.tables.Forest.Get(region)
	if err != nil {
		return 0, f, false, lookupError(e.unit, err)
	}
	if err := f.Validate(); err != nil {
		return 0, f, false, &ComputationError{
			Zone:   e.unit.Zone.ID,
			Period: e.unit.Period,
			Detail: fmt.Sprintf("forest region %d: %v", region, err),
		}
	}

	e.factors[region] = f
	return region, f, true, nil
}

// density returns the carbon lost at cell i (t C/ha) when forest converts
// with the given pool loss fractions. Nodata pool cells contribute nothing.
func (e *evaluator) density(i int, loss lookup.PoolFactors) float64 {
	var sum float64
	for _, p := range []struct {
		layer *raster.Raster
		frac  float64
	}{
		{e.layers.Pools.Biomass, loss.Biomass},
		{e.layers.Pools.DeadOrganicMatter, loss.DeadOrganicMatter},
		{e.layers.Pools.SoilOrganic, loss.SoilOrganic},
	} {
		if p.layer == nil {
			continue
		}
		if v, ok := p.layer.Value(i); ok {
			sum += v * p.frac
		}
	}
	return sum
}

func (e *evaluator) addForest(key forestKey, w float64) {
	acc, ok := e.forest[key]
	if !ok {
		acc = &forestAccumulator{}
		e.forest[key] = acc
	}
	acc.cells++
	acc.weight += w
}

func (e *evaluator) addStrata(i int, category Category) {
	for _, s := range e.layers.Strata {
		code, ok := s.Raster.Class(i)
		if !ok {
			continue
		}
		label := fmt.Sprint(code)
		if s.Labels != nil {
			if l, err := s.Labels.Get(code); err == nil {
				label = l
			}
		}
		e.strata[stratumKey{s.Name, label, category}]++
	}
}

// flux converts an accumulated per-hectare weight into annual t CO2e.
// Removal factors are already annual; stock losses and disturbance
// emissions are spread over the period.
func (e *evaluator) flux(source Source, category Category, weight float64) float64 {
	v := weight * e.cellHa * e.opts.CarbonToCO2
	switch {
	case source == Disturbance:
		return v / float64(e.unit.Period.Years())
	case category == ForestRemainingForest, category == NonforestToForest:
		return v
	case category == Unclassified, category == NonforestToNonforest:
		return 0
	}
	return v / float64(e.unit.Period.Years())
}

func (e *evaluator) finish() error {
	res := e.res
	scale := e.opts.CanopyScale
	if scale == 0 {
		scale = 1
	}

	for _, acc := range e.records {
		rec := acc.rec
		rec.Hectares = float64(rec.Cells) * e.cellHa
		rec.Flux = e.flux(rec.Source, rec.Category, acc.weight)
		rec.Factor = rec.Flux / rec.Hectares
		rec.CanopyHa = acc.canopy * scale * e.cellHa
		rec.CanopyLossHa = acc.loss * scale * e.cellHa
		rec.PlantableHa = acc.plantable * e.cellHa

		if rec.Source == Disturbance {
			rec.Kind = Emission
		} else {
			_, rec.Kind = Categorize(rec.FromParent, rec.ToParent)
		}
		if rec.Flux == 0 && (rec.Kind == Emission || rec.Kind == Removal) {
			rec.Kind = NoChange
		}

		if math.IsNaN(rec.Flux) || math.IsInf(rec.Flux, 0) {
			return &ComputationError{
				Zone:   e.unit.Zone.ID,
				Period: e.unit.Period,
				Detail: fmt.Sprintf("non-finite flux for %s %s", rec.Category, rec.Disturbance),
			}
		}

		switch rec.Source {
		case Disturbance:
			res.DisturbedHa += rec.Hectares
		default:
			res.LandCoverHa += rec.Hectares
		}
		res.Records = append(res.Records, rec)
	}
	res.Hectares = float64(res.Cells) * e.cellHa

	slices.SortFunc(res.Records, compareRecords)

	for key, acc := range e.forest {
		res.ForestTypes = append(res.ForestTypes, ForestTypeArea{
			Region:      key.region,
			Source:      key.source,
			Category:    key.category,
			Disturbance: key.disturbance,
			Hectares:    float64(acc.cells) * e.cellHa,
			Flux:        e.flux(key.source, key.category, acc.weight),
		})
	}
	slices.SortFunc(res.ForestTypes, func(a, b ForestTypeArea) int {
		if c := cmp.Compare(a.Region, b.Region); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Disturbance, b.Disturbance)
	})

	for key, cells := range e.strata {
		res.Strata = append(res.Strata, StratumArea{
			Stratum:  key.stratum,
			Label:    key.label,
			Category: key.category,
			Hectares: float64(cells) * e.cellHa,
		})
	}
	slices.SortFunc(res.Strata, func(a, b StratumArea) int {
		if c := cmp.Compare(a.Stratum, b.Stratum); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	return nil
}

func compareRecords(a, b Record) int {
	if c := cmp.Compare(a.Source, b.Source); c != 0 {
		return -c
	}
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Disturbance, b.Disturbance); c != 0 {
		return c
	}
	if c := cmp.Compare(a.FromCode, b.FromCode); c != 0 {
		return c
	}
	return cmp.Compare(a.ToCode, b.ToCode)
}
