package inventory

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/zonal"
)

// IPCC rollup categories.
const (
	IPCCForestRemaining = "Forest remaining forest"
	IPCCForestToNon     = "Forest to nonforest"
	IPCCNonToForest     = "Nonforest to forest"
	IPCCTreesOutside    = "Trees outside forests"
	IPCCOther           = "Other"
	Total               = "Total"
)

// IPCCRow is one line of the simplified IPCC report.
type IPCCRow struct {
	Category string  `json:"category"`
	Flux     float64 `json:"flux"`
}

func ipccCategory(r Row) string {
	switch r.Category {
	case ForestRemainingForest:
		return IPCCForestRemaining
	case ForestChange:
		if strings.HasPrefix(r.Type, "To ") {
			return IPCCForestToNon
		}
		return IPCCNonToForest
	case TreesOutsideForest:
		return IPCCTreesOutside
	}
	return IPCCOther
}

// IPCC rolls inventory rows up to IPCC categories, in name order, followed
// by a Total row.
func IPCC(rows []Row) []IPCCRow {
	sums := make(map[string]float64)
	for _, r := range rows {
		sums[ipccCategory(r)] += r.Flux
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]IPCCRow, 0, len(keys)+1)
	var total float64
	for _, k := range keys {
		out = append(out, IPCCRow{Category: k, Flux: sums[k]})
		total += sums[k]
	}
	return append(out, IPCCRow{Category: Total, Flux: total})
}

// TransitionMatrix is a land-cover transition table in hectares. Rows are
// the start year classes, columns the end year classes; the last row and
// column hold totals.
type TransitionMatrix struct {
	Labels []string
	Data   *mat.Dense
	// Unmapped lists class codes missing from the classes table. Their
	// area is tabulated under Unclassified.
	Unmapped []int32
}

// Transitions tabulates a result's transition matrix by class label. Labels
// follow order; classes absent from order are appended in code order.
func Transitions(res *accounting.Result, classes *lookup.Table[int32, string], order []string) *TransitionMatrix {
	labels := slices.Clone(order)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	transitions := res.Matrix.Transitions()
	codes := make([]int32, 0, 2*len(transitions))
	for _, t := range transitions {
		codes = append(codes, t.From, t.To)
	}
	names, unmapped := lookup.Convert(codes, classes)
	for _, l := range names {
		if _, ok := index[l]; !ok {
			index[l] = len(labels)
			labels = append(labels, l)
		}
	}

	n := len(labels)
	if n == 0 {
		return &TransitionMatrix{Data: mat.NewDense(1, 1, nil), Unmapped: unmapped}
	}
	data := mat.NewDense(n+1, n+1, nil)
	cellHa := zonal.CellHectares(res.CellSize)
	for k, t := range transitions {
		i, j := index[names[2*k]], index[names[2*k+1]]
		data.Set(i, j, data.At(i, j)+float64(res.Matrix[t])*cellHa)
	}

	ones := mat.NewVecDense(n, nil)
	for i := range n {
		ones.SetVec(i, 1)
	}
	body := data.Slice(0, n, 0, n)

	var rowSums, colSums mat.VecDense
	rowSums.MulVec(body, ones)
	colSums.MulVec(body.T(), ones)
	for i := range n {
		data.Set(i, n, rowSums.AtVec(i))
		data.Set(n, i, colSums.AtVec(i))
	}
	data.Set(n, n, mat.Sum(body))

	return &TransitionMatrix{Labels: labels, Data: data, Unmapped: unmapped}
}

// Total returns the grand total in hectares.
func (m *TransitionMatrix) Total() float64 {
	n := len(m.Labels)
	return m.Data.At(n, n)
}

// CanopyRow summarises tree canopy on nonforest land by end-year parent
// class.
type CanopyRow struct {
	Category         lookup.ParentClass `json:"category"`
	CanopyHa         float64            `json:"canopy_ha"`
	CanopyLossHa     float64            `json:"canopy_loss_ha"`
	PlantableHa      float64            `json:"plantable_ha"`
	PercentCover     float64            `json:"percent_cover"`
	PercentPlantable float64            `json:"percent_plantable"`
}

var canopyOrder = []lookup.ParentClass{
	lookup.Grassland,
	lookup.Cropland,
	lookup.Settlement,
	lookup.Wetland,
	lookup.OtherLand,
}

// Canopy summarises nonforest-remaining-nonforest records. Only parent
// classes present in the result appear.
func Canopy(res *accounting.Result) []CanopyRow {
	type sums struct {
		area, canopy, loss, plantable float64
	}
	by := make(map[lookup.ParentClass]*sums)
	for _, rec := range res.Records {
		if rec.Source != accounting.LandCover || rec.Category != accounting.NonforestToNonforest {
			continue
		}
		s, ok := by[rec.ToParent]
		if !ok {
			s = &sums{}
			by[rec.ToParent] = s
		}
		s.area += rec.Hectares
		s.canopy += rec.CanopyHa
		s.loss += rec.CanopyLossHa
		s.plantable += rec.PlantableHa
	}

	var out []CanopyRow
	for _, parent := range canopyOrder {
		s, ok := by[parent]
		if !ok {
			continue
		}
		row := CanopyRow{
			Category:     parent,
			CanopyHa:     s.canopy,
			CanopyLossHa: s.loss,
			PlantableHa:  s.plantable,
		}
		if s.area > 0 {
			row.PercentCover = s.canopy / s.area * 100
			row.PercentPlantable = s.plantable / s.area * 100
		}
		out = append(out, row)
	}
	return out
}
