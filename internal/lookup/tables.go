package lookup

import (
	"errors"
	"fmt"
	"slices"
)

// ParentClass is the IPCC land-use category a land-cover class rolls up to.
type ParentClass string

const (
	Forestland ParentClass = "Forestland"
	Settlement ParentClass = "Settlement"
	OtherLand  ParentClass = "Other Land"
	Cropland   ParentClass = "Cropland"
	Grassland  ParentClass = "Grassland"
	Wetland    ParentClass = "Wetland"
	// NoParent marks classes excluded from the accounting categories.
	NoParent ParentClass = "None"
)

// NonforestParents lists the parent classes a forest can convert to, in
// report order.
var NonforestParents = []ParentClass{Settlement, OtherLand, Cropland, Grassland, Wetland}

// Disturbance is a forest disturbance type.
type Disturbance string

const (
	Harvest      Disturbance = "harvest"
	InsectDamage Disturbance = "insect_damage"
	Fire         Disturbance = "fire"
)

// DefaultPriority orders disturbance types when several claim a cell.
var DefaultPriority = []Disturbance{Fire, InsectDamage, Harvest}

// ParseDisturbance validates a disturbance type name.
func ParseDisturbance(s string) (Disturbance, error) {
	switch d := Disturbance(s); d {
	case Harvest, InsectDamage, Fire:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown disturbance type %q", ErrInvalidTable, s)
}

// PoolFactors are the fractions of each carbon pool lost when forest converts
// to a parent class.
type PoolFactors struct {
	Biomass           float64 `yaml:"biomass"`
	DeadOrganicMatter float64 `yaml:"dead_organic_matter"`
	SoilOrganic       float64 `yaml:"soil_organic"`
}

// Unclassified is the label given to codes with no class mapping.
const Unclassified = "Unclassified"

// Tables bundles every lookup table used by an analysis run.
type Tables struct {
	Classes      *Table[int32, string]
	Parents      *Table[string, ParentClass]
	Disturbances *Table[int32, Disturbance]
	StockLoss    *Table[ParentClass, PoolFactors]
	Forest       *Table[int32, ForestFactors]
	Maturity     *Table[int32, string]
	Protection   *Table[int32, string]
}

// Defaults returns the NLCD methodology tables. The forest factor table is
// empty until factors are loaded.
func Defaults() *Tables {
	return &Tables{
		Classes:      NewTable("classes", nlcdClasses),
		Parents:      NewTable("parents", nlcdParents),
		Disturbances: NewTable("disturbances", disturbanceCodes),
		StockLoss:    NewTable("stock_loss", stockLoss),
		Forest:       NewTable("forest_factors", map[int32]ForestFactors{}),
		Maturity:     NewTable("maturity", maturityClasses),
		Protection:   NewTable("protection", protectionClasses),
	}
}

// NLCDCodes returns the NLCD land-cover codes, ascending.
func NLCDCodes() []int32 {
	codes := make([]int32, 0, len(nlcdClasses))
	for code := range nlcdClasses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Parent resolves a land-cover code to its label and parent class.
func (t *Tables) Parent(code int32) (string, ParentClass, error) {
	label, err := t.Classes.Get(code)
	if err != nil {
		return "", "", err
	}
	parent, err := t.Parents.Get(label)
	if err != nil {
		return label, "", err
	}
	return label, parent, nil
}

// Validate checks that every expected land-cover code resolves to a parent
// class, every non-excluded parent that forest can convert to has stock loss
// fractions, and every factor has a valid sign.
func (t *Tables) Validate(expected []int32) error {
	var errs []error

	for _, code := range expected {
		_, parent, err := t.Parent(code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if parent != Forestland && parent != NoParent && !t.StockLoss.Has(parent) {
			errs = append(errs, &MissingError{Table: t.StockLoss.Name(), Code: string(parent)})
		}
	}

	for _, parent := range t.StockLoss.Keys() {
		f, _ := t.StockLoss.Get(parent)
		for _, v := range []float64{f.Biomass, f.DeadOrganicMatter, f.SoilOrganic} {
			if v < 0 || v > 1 {
				errs = append(errs, fmt.Errorf("%w: stock loss fraction %v for %s", ErrInvalidFactor, v, parent))
			}
		}
	}

	for _, region := range t.Forest.Keys() {
		f, _ := t.Forest.Get(region)
		if err := f.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("forest region %d: %w", region, err))
		}
	}

	return errors.Join(errs...)
}

// Convert maps codes to class labels. Unmapped codes receive Unclassified
// and are returned, sorted and deduplicated, so the caller can raise them.
func Convert(codes []int32, classes *Table[int32, string]) ([]string, []int32) {
	labels := make([]string, len(codes))
	var unmapped []int32

	for i, code := range codes {
		label, err := classes.Get(code)
		if err != nil {
			labels[i] = Unclassified
			unmapped = append(unmapped, code)
			continue
		}
		labels[i] = label
	}

	slices.Sort(unmapped)
	return labels, slices.Compact(unmapped)
}

var nlcdClasses = map[int32]string{
	11: "Open Water",
	12: "Perennial Ice/Snow",
	21: "Developed, Open Space",
	22: "Developed, Low Intensity",
	23: "Developed, Medium Intensity",
	24: "Developed, High Intensity",
	31: "Barren Land",
	41: "Deciduous Forest",
	42: "Evergreen Forest",
	43: "Mixed Forest",
	51: "Dwarf Scrub",
	52: "Shrub/Scrub",
	71: "Herbaceous",
	72: "Sedge/Herbaceous",
	73: "Lichens",
	74: "Moss",
	81: "Hay/Pasture",
	82: "Cultivated Crops",
	90: "Woody Wetlands",
	95: "Emergent Herbaceous Wetlands",
}

var nlcdParents = map[string]ParentClass{
	"Open Water":                   Wetland,
	"Perennial Ice/Snow":           OtherLand,
	"Developed, Open Space":        Settlement,
	"Developed, Low Intensity":     Settlement,
	"Developed, Medium Intensity":  Settlement,
	"Developed, High Intensity":    Settlement,
	"Barren Land":                  OtherLand,
	"Deciduous Forest":             Forestland,
	"Evergreen Forest":             Forestland,
	"Mixed Forest":                 Forestland,
	"Dwarf Scrub":                  NoParent,
	"Shrub/Scrub":                  Grassland,
	"Herbaceous":                   Grassland,
	"Sedge/Herbaceous":             NoParent,
	"Lichens":                      NoParent,
	"Moss":                         NoParent,
	"Hay/Pasture":                  Grassland,
	"Cultivated Crops":             Cropland,
	"Woody Wetlands":               Forestland,
	"Emergent Herbaceous Wetlands": Wetland,
}

// ClassOrder is the report order of land-cover classes in transition
// matrices.
var ClassOrder = []string{
	"Deciduous Forest",
	"Evergreen Forest",
	"Mixed Forest",
	"Woody Wetlands",
	"Cultivated Crops",
	"Hay/Pasture",
	"Herbaceous",
	"Shrub/Scrub",
	"Open Water",
	"Emergent Herbaceous Wetlands",
	"Developed, Open Space",
	"Developed, Low Intensity",
	"Developed, Medium Intensity",
	"Developed, High Intensity",
	"Barren Land",
	"Perennial Ice/Snow",
}

var disturbanceCodes = map[int32]Disturbance{
	1:  Harvest,
	5:  InsectDamage,
	10: Fire,
}

var stockLoss = map[ParentClass]PoolFactors{
	Cropland:   {Biomass: 1, DeadOrganicMatter: 1, SoilOrganic: 0.23},
	Grassland:  {Biomass: 0.5, DeadOrganicMatter: 1, SoilOrganic: 0},
	Wetland:    {Biomass: 1, DeadOrganicMatter: 1, SoilOrganic: 0},
	Settlement: {Biomass: 1, DeadOrganicMatter: 1, SoilOrganic: 0.3},
	OtherLand:  {Biomass: 1, DeadOrganicMatter: 1, SoilOrganic: 1},
}

var maturityClasses = map[int32]string{
	1: "Early",
	2: "Intermediate",
	3: "Mature",
	4: "Old-Growth",
}

var protectionClasses = map[int32]string{
	1: "GAP1",
	2: "GAP2",
	3: "GAP3",
	4: "GAP4",
}
