package accounting_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/gis"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/raster"
)

const crs = "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +ellps=GRS80 +units=m +no_defs"

var grid = raster.Definition{Cols: 3, Rows: 3, OriginX: 0, OriginY: 0, CellSize: 100, CRS: crs}

func layer(t *testing.T, name string, values ...float64) *raster.Raster {
	t.Helper()
	r, err := raster.New(name, grid, values)
	if err != nil {
		t.Fatalf("raster %s: %v", name, err)
	}
	return r.WithNoData(-9999)
}

func zone(id string, x0, y0, size float64) gis.Zone {
	return gis.Zone{
		ID:   id,
		Name: id,
		Geometry: geom.Polygon{{
			{X: x0, Y: y0},
			{X: x0 + size, Y: y0},
			{X: x0 + size, Y: y0 + size},
			{X: x0, Y: y0 + size},
		}},
	}
}

func tables() *lookup.Tables {
	return &lookup.Tables{
		Classes: lookup.NewTable("classes", map[int32]string{1: "Forest", 2: "Non-forest", 3: "Water"}),
		Parents: lookup.NewTable("parents", map[string]lookup.ParentClass{
			"Forest":     lookup.Forestland,
			"Non-forest": lookup.Grassland,
			"Water":      lookup.NoParent,
		}),
		Disturbances: lookup.NewTable("disturbances", map[int32]lookup.Disturbance{
			1:  lookup.Harvest,
			5:  lookup.InsectDamage,
			10: lookup.Fire,
		}),
		StockLoss: lookup.NewTable("stock_loss", map[lookup.ParentClass]lookup.PoolFactors{
			lookup.Grassland: {Biomass: 1},
		}),
		Forest: lookup.NewTable("forest_factors", map[int32]lookup.ForestFactors{
			0: {},
		}),
	}
}

func options() accounting.Options {
	opts := accounting.DefaultOptions()
	opts.CarbonToCO2 = 1
	return opts
}

func unit(z gis.Zone) accounting.Unit {
	return accounting.Unit{Zone: z, Period: accounting.Period{Start: 2020, End: 2021}}
}

func baseLayers(t *testing.T) accounting.Layers {
	return accounting.Layers{
		From: layer(t, "from", 1, 1, 1, 1, 1, 1, 1, 1, 1),
		To:   layer(t, "to", 2, 1, 1, 1, 1, 1, 1, 1, 1),
		Pools: accounting.Pools{
			Biomass: layer(t, "biomass", 5, 5, 5, 5, 5, 5, 5, 5, 5),
		},
	}
}

func find(records []accounting.Record, from, to int32) (accounting.Record, bool) {
	for _, r := range records {
		if r.Source == accounting.LandCover && r.FromCode == from && r.ToCode == to {
			return r, true
		}
	}
	return accounting.Record{}, false
}

func TestEvaluateForestConversion(t *testing.T) {
	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), baseLayers(t), tables(), options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if res.Cells != 9 {
		t.Errorf("cells = %d, want 9", res.Cells)
	}
	if res.Matrix.Total() != res.Cells {
		t.Errorf("matrix total = %d, want %d", res.Matrix.Total(), res.Cells)
	}

	conv, ok := find(res.Records, 1, 2)
	if !ok {
		t.Fatal("missing 1->2 record")
	}
	if conv.Category != accounting.ForestToGrassland {
		t.Errorf("category = %s", conv.Category)
	}
	if conv.Kind != accounting.Emission {
		t.Errorf("kind = %s, want emission", conv.Kind)
	}
	if math.Abs(conv.Flux-5) > 1e-9 {
		t.Errorf("flux = %v, want 5", conv.Flux)
	}
	if conv.Hectares != 1 {
		t.Errorf("hectares = %v, want 1", conv.Hectares)
	}

	same, ok := find(res.Records, 1, 1)
	if !ok {
		t.Fatal("missing 1->1 record")
	}
	if same.Category != accounting.ForestRemainingForest || same.Kind != accounting.NoChange {
		t.Errorf("1->1 = %s %s, want forest remaining forest no-change", same.Category, same.Kind)
	}

	emitting := 0
	for _, r := range res.Records {
		if r.Kind == accounting.Emission {
			emitting++
		}
	}
	if emitting != 1 {
		t.Errorf("emission records = %d, want 1", emitting)
	}
	if res.Emissions() != 5 {
		t.Errorf("emissions = %v, want 5", res.Emissions())
	}
}

func TestEvaluateFluxFormulas(t *testing.T) {
	tbl := tables()
	tbl.Forest = lookup.NewTable("forest_factors", map[int32]lookup.ForestFactors{
		0: {NonforestToForest: -2, RemainingForest: -0.5, Fire: 10},
	})

	layers := accounting.Layers{
		From: layer(t, "from", 1, 1, 1, 2, 2, 2, 1, 1, 1),
		To:   layer(t, "to", 1, 1, 1, 1, 1, 2, 2, 1, 1),
		Pools: accounting.Pools{
			Biomass: layer(t, "biomass", 8, 8, 8, 8, 8, 8, 8, 8, 8),
		},
		Disturbances: []*raster.Raster{
			layer(t, "fire", 0, 0, 0, 0, 0, 0, 0, 10, 10),
		},
	}

	u := accounting.Unit{Zone: zone("z1", 0, 0, 300), Period: accounting.Period{Start: 2016, End: 2020}}
	res, err := accounting.Evaluate(context.Background(), u, layers, tbl, options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	want := map[[2]int32]float64{
		{1, 1}: 3 * -0.5,
		{2, 1}: 2 * -2,
		{1, 2}: 8.0 / 4,
		{2, 2}: 0,
	}
	for tr, flux := range want {
		rec, ok := find(res.Records, tr[0], tr[1])
		if !ok {
			t.Errorf("missing %d->%d record", tr[0], tr[1])
			continue
		}
		if math.Abs(rec.Flux-flux) > 1e-9 {
			t.Errorf("%d->%d flux = %v, want %v", tr[0], tr[1], rec.Flux, flux)
		}
	}

	var fire *accounting.Record
	for i := range res.Records {
		if res.Records[i].Source == accounting.Disturbance {
			fire = &res.Records[i]
		}
	}
	if fire == nil {
		t.Fatal("missing disturbance record")
	}
	if fire.Disturbance != lookup.Fire || fire.Category != accounting.ForestRemainingForest {
		t.Errorf("disturbance record = %s %s", fire.Disturbance, fire.Category)
	}
	if math.Abs(fire.Flux-2*10.0/4) > 1e-9 {
		t.Errorf("fire flux = %v, want 5", fire.Flux)
	}

	if res.Records[0].Source != accounting.LandCover {
		t.Error("land-cover records should sort first")
	}
}

func TestEvaluateDisturbancePriority(t *testing.T) {
	tbl := tables()
	tbl.Forest = lookup.NewTable("forest_factors", map[int32]lookup.ForestFactors{
		0: {Fire: 3, Insect: 2, Harvest: 1},
	})

	layers := baseLayers(t)
	layers.From = layer(t, "from", 1, 1, 1, 1, 1, 1, 2, 2, 2)
	layers.To = layer(t, "to", 1, 1, 1, 1, 1, 1, 2, 2, 2)
	layers.Disturbances = []*raster.Raster{
		layer(t, "harvest", 1, 1, 1, 0, 0, 0, 1, 0, 0),
		layer(t, "insect", 5, 0, 0, 5, 0, 0, 0, 0, 0),
		layer(t, "fire", 10, 0, 0, 0, 0, 0, 0, 0, -9999),
	}

	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), layers, tbl, options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	cells := map[lookup.Disturbance]int64{}
	for _, r := range res.Records {
		if r.Source == accounting.Disturbance {
			cells[r.Disturbance] += r.Cells
		}
	}

	want := map[lookup.Disturbance]int64{lookup.Fire: 1, lookup.InsectDamage: 1, lookup.Harvest: 2}
	for d, n := range want {
		if cells[d] != n {
			t.Errorf("%s cells = %d, want %d", d, cells[d], n)
		}
	}

	if math.Abs(res.DisturbedHa+res.LandCoverHa-res.Hectares) > 1e-9 {
		t.Errorf("disturbed %v + land cover %v != total %v", res.DisturbedHa, res.LandCoverHa, res.Hectares)
	}
	if res.DisturbedHa != 4 {
		t.Errorf("disturbed ha = %v, want 4", res.DisturbedHa)
	}
}

func TestEvaluateLookupError(t *testing.T) {
	layers := baseLayers(t)
	layers.From = layer(t, "from", 1, 1, 1, 1, 7, 1, 1, 1, 1)

	_, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), layers, tables(), options())

	var lerr *accounting.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want *LookupError", err)
	}
	if lerr.Code != "7" || lerr.Table != "classes" {
		t.Errorf("lookup error = table %q code %q", lerr.Table, lerr.Code)
	}
	if !errors.Is(err, lookup.ErrMissingMapping) {
		t.Error("lookup error should match ErrMissingMapping")
	}
	if accounting.Halts(err) {
		t.Error("lookup error should not halt the run")
	}
}

func TestEvaluateErrors(t *testing.T) {
	shifted := raster.Definition{Cols: 3, Rows: 3, OriginX: 50, OriginY: 0, CellSize: 100, CRS: crs}

	tests := []struct {
		name   string
		unit   accounting.Unit
		layers func() accounting.Layers
		opts   func() accounting.Options
		target error
		halts  bool
	}{
		{
			name: "misaligned",
			unit: unit(zone("z1", 0, 0, 300)),
			layers: func() accounting.Layers {
				l := baseLayers(t)
				l.Pools.Biomass = raster.Filled("biomass", shifted, 5)
				return l
			},
			opts:   options,
			target: raster.ErrMisaligned,
		},
		{
			name: "missing land cover",
			unit: unit(zone("z1", 0, 0, 300)),
			layers: func() accounting.Layers {
				l := baseLayers(t)
				l.To = nil
				return l
			},
			opts:   options,
			target: accounting.ErrMissingLayer,
		},
		{
			name:   "no overlap",
			unit:   unit(zone("z1", 1000, 1000, 300)),
			layers: func() accounting.Layers { return baseLayers(t) },
			opts:   options,
			target: accounting.ErrNoOverlap,
		},
		{
			name: "zero years",
			unit: accounting.Unit{Zone: zone("z1", 0, 0, 300), Period: accounting.Period{Start: 2020, End: 2020}},
			layers: func() accounting.Layers {
				return baseLayers(t)
			},
			opts:   options,
			target: accounting.ErrComputation,
			halts:  true,
		},
		{
			name:   "invalid carbon ratio",
			unit:   unit(zone("z1", 0, 0, 300)),
			layers: func() accounting.Layers { return baseLayers(t) },
			opts: func() accounting.Options {
				o := options()
				o.CarbonToCO2 = 0
				return o
			},
			target: accounting.ErrComputation,
			halts:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accounting.Evaluate(context.Background(), tt.unit, tt.layers(), tables(), tt.opts())
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}
			if accounting.Halts(err) != tt.halts {
				t.Errorf("halts = %v, want %v", accounting.Halts(err), tt.halts)
			}
		})
	}
}

func TestEvaluateInvalidFactorHalts(t *testing.T) {
	tbl := tables()
	tbl.Forest = lookup.NewTable("forest_factors", map[int32]lookup.ForestFactors{
		0: {RemainingForest: 4},
	})

	_, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), baseLayers(t), tbl, options())
	if !accounting.Halts(err) {
		t.Fatalf("err = %v, want halting error", err)
	}
}

func TestEvaluateNoDataExcluded(t *testing.T) {
	layers := baseLayers(t)
	layers.To = layer(t, "to", 1, 1, 1, 1, -9999, 1, 1, 1, 1)

	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), layers, tables(), options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Cells != 8 || res.ExcludedCells != 1 {
		t.Errorf("cells = %d excluded = %d, want 8 and 1", res.Cells, res.ExcludedCells)
	}
	if res.Matrix.Total() != 8 {
		t.Errorf("matrix total = %d, want 8", res.Matrix.Total())
	}
}

func TestEvaluateUnfactoredCells(t *testing.T) {
	layers := baseLayers(t)
	layers.ForestType = layer(t, "forest_type", 0, 0, 0, 0, 0, 0, -9999, -9999, 0)

	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), layers, tables(), options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.UnfactoredCells != 2 {
		t.Errorf("unfactored = %d, want 2", res.UnfactoredCells)
	}
	rec, _ := find(res.Records, 1, 1)
	if rec.Cells != 8 {
		t.Errorf("1->1 cells = %d, want 8", rec.Cells)
	}
}

func TestEvaluatePoolDensity(t *testing.T) {
	layers := baseLayers(t)
	layers.Pools.DeadOrganicMatter = layer(t, "dead_organic_matter",
		-9999, -9999, -9999, -9999, -9999, -9999, -9999, -9999, -9999)

	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), layers, tables(), options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Density) != 2 {
		t.Fatalf("density = %+v, want biomass and dead_organic_matter", res.Density)
	}

	bio := res.Density[0]
	if bio.Pool != "biomass" || bio.Count != 9 || bio.Mean != 5 || bio.Sum != 45 || bio.NoData {
		t.Errorf("biomass = %+v, want 9 cells at 5", bio)
	}
	if dom := res.Density[1]; dom.Pool != "dead_organic_matter" || !dom.NoData || dom.Count != 0 {
		t.Errorf("dead organic matter = %+v, want nodata", dom)
	}
}

func TestEvaluateCanopy(t *testing.T) {
	layers := baseLayers(t)
	layers.From = layer(t, "from", 2, 2, 2, 2, 2, 2, 2, 2, 2)
	layers.To = layer(t, "to", 2, 2, 2, 2, 2, 2, 2, 2, 2)
	layers.CanopyFrom = layer(t, "canopy_start", 50, 50, 50, 50, 50, 50, 50, 50, 50)
	layers.CanopyTo = layer(t, "canopy_end", 30, 30, 30, 70, 70, 70, 50, 50, 50)
	layers.Plantable = layer(t, "plantable", 1, 0, 1, 0, 1, 0, 1, 0, 1)

	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 0, 300)), layers, tables(), options())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	rec, ok := find(res.Records, 2, 2)
	if !ok {
		t.Fatal("missing 2->2 record")
	}
	if rec.Category != accounting.NonforestToNonforest {
		t.Errorf("category = %s", rec.Category)
	}
	if math.Abs(rec.CanopyHa-4.5) > 1e-9 {
		t.Errorf("canopy ha = %v, want 4.5", rec.CanopyHa)
	}
	if math.Abs(rec.CanopyLossHa-0.6) > 1e-9 {
		t.Errorf("canopy loss ha = %v, want 0.6", rec.CanopyLossHa)
	}
	if rec.PlantableHa != 5 {
		t.Errorf("plantable ha = %v, want 5", rec.PlantableHa)
	}
}

func TestEvaluateAttribution(t *testing.T) {
	opts := options()
	opts.Attribution = true

	res, err := accounting.Evaluate(context.Background(), unit(zone("z1", 0, 100, 200)), baseLayers(t), tables(), opts)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	grid := res.Attribution
	if grid == nil {
		t.Fatal("missing attribution grid")
	}
	if grid.Cols != 2 || grid.Rows != 2 {
		t.Fatalf("grid = %dx%d, want 2x2", grid.Cols, grid.Rows)
	}
	// upper-left 2x2 block; cell (0,0) converted to grassland
	if got := grid.Values[0]; got != accounting.AttributionEmission {
		t.Errorf("converted cell = %v, want emission", got)
	}
	if got := grid.Values[1]; got != accounting.AttributionNone {
		t.Errorf("unchanged cell = %v, want none", got)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := accounting.Evaluate(ctx, unit(zone("z1", 0, 0, 300)), baseLayers(t), tables(), options())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		from, to lookup.ParentClass
		category accounting.Category
		kind     accounting.Kind
	}{
		{lookup.Forestland, lookup.Forestland, accounting.ForestRemainingForest, accounting.Removal},
		{lookup.Forestland, lookup.Settlement, accounting.ForestToSettlement, accounting.Emission},
		{lookup.Forestland, lookup.OtherLand, accounting.ForestToOtherLand, accounting.Emission},
		{lookup.Forestland, lookup.Cropland, accounting.ForestToCropland, accounting.Emission},
		{lookup.Forestland, lookup.Grassland, accounting.ForestToGrassland, accounting.Emission},
		{lookup.Forestland, lookup.Wetland, accounting.ForestToWetland, accounting.Emission},
		{lookup.Cropland, lookup.Forestland, accounting.NonforestToForest, accounting.Removal},
		{lookup.Cropland, lookup.Settlement, accounting.NonforestToNonforest, accounting.NoChange},
		{lookup.NoParent, lookup.Forestland, accounting.Unclassified, accounting.KindUnresolved},
		{lookup.Forestland, lookup.NoParent, accounting.Unclassified, accounting.KindUnresolved},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c, k := accounting.Categorize(tt.from, tt.to)
			if c != tt.category || k != tt.kind {
				t.Errorf("got %s %s, want %s %s", c, k, tt.category, tt.kind)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    accounting.Period
		wantErr bool
	}{
		{"2011-2013", accounting.Period{Start: 2011, End: 2013}, false},
		{"2016_2019", accounting.Period{Start: 2016, End: 2019}, false},
		{" 2001-2004 ", accounting.Period{Start: 2001, End: 2004}, false},
		{"2013-2011", accounting.Period{}, true},
		{"2013", accounting.Period{}, true},
		{"abcd-2011", accounting.Period{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := accounting.ParsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsecutivePeriods(t *testing.T) {
	got := accounting.ConsecutivePeriods([]int{2001, 2004, 2006})
	if len(got) != 2 || got[0].String() != "2001-2004" || got[1].String() != "2004-2006" {
		t.Errorf("got %v", got)
	}
	if accounting.ConsecutivePeriods([]int{2001}) != nil {
		t.Error("single year should yield no periods")
	}
}

func TestIssueFor(t *testing.T) {
	u := unit(zone("z9", 0, 0, 300))

	tests := []struct {
		name string
		err  error
		kind accounting.IssueKind
	}{
		{"lookup", &accounting.LookupError{Zone: "z9", Table: "classes", Code: "7"}, accounting.IssueLookup},
		{"input", &accounting.InputError{Zone: "z9", Layer: "forest_type", Err: raster.ErrMisaligned}, accounting.IssueInput},
		{"zone", &accounting.ZoneError{Zone: "z9", Err: accounting.ErrNoOverlap}, accounting.IssueZone},
		{"computation", &accounting.ComputationError{Zone: "z9", Detail: "nan"}, accounting.IssueComputation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := accounting.IssueFor(u, tt.err)
			if issue.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", issue.Kind, tt.kind)
			}
			if issue.Zone != "z9" || issue.Period != "2020-2021" {
				t.Errorf("issue = %+v", issue)
			}
		})
	}
}
