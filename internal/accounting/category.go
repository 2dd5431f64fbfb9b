package accounting

import "github.com/JaimeStill/landflux/internal/lookup"

// Category is the accounting category of a land-cover transition.
type Category string

const (
	ForestRemainingForest Category = "Forest Remaining Forest"
	ForestToSettlement    Category = "Forest to Settlement"
	ForestToOtherLand     Category = "Forest to Other Land"
	ForestToCropland      Category = "Forest to Cropland"
	ForestToGrassland     Category = "Forest to Grassland"
	ForestToWetland       Category = "Forest to Wetland"
	NonforestToForest     Category = "Nonforest to Forest"
	NonforestToNonforest  Category = "Nonforest to Nonforest"
	Unclassified          Category = "Unclassified"
)

// Kind is the direction of a record's flux.
type Kind string

const (
	Emission       Kind = "emission"
	Removal        Kind = "removal"
	NoChange       Kind = "no-change"
	KindUnresolved Kind = "unclassified"
)

// Source names what a record is attributed to.
type Source string

const (
	LandCover   Source = "land-cover"
	Disturbance Source = "disturbance"
)

var forestConversions = map[lookup.ParentClass]Category{
	lookup.Settlement: ForestToSettlement,
	lookup.OtherLand:  ForestToOtherLand,
	lookup.Cropland:   ForestToCropland,
	lookup.Grassland:  ForestToGrassland,
	lookup.Wetland:    ForestToWetland,
}

// Categorize classifies a transition between parent classes.
func Categorize(from, to lookup.ParentClass) (Category, Kind) {
	switch {
	case from == lookup.NoParent || to == lookup.NoParent:
		return Unclassified, KindUnresolved
	case from == lookup.Forestland && to == lookup.Forestland:
		return ForestRemainingForest, Removal
	case from == lookup.Forestland:
		if c, ok := forestConversions[to]; ok {
			return c, Emission
		}
		return Unclassified, KindUnresolved
	case to == lookup.Forestland:
		return NonforestToForest, Removal
	}
	return NonforestToNonforest, NoChange
}

// ForestConversion returns the category for forest converting to parent.
func ForestConversion(to lookup.ParentClass) (Category, bool) {
	c, ok := forestConversions[to]
	return c, ok
}
