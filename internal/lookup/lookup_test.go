package lookup_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/landflux/internal/lookup"
)

const factorsCSV = `ForestAgeTypeRegion,Nonforest to Forest Removal Factor,Forests Remaining Forest Removal Factor,Fire Emissions Factor,Insect Emissions Factor,Harvest Emissions Factor,Notes
101,-1.2,-0.8,30.5,12.0,45.0,oak-hickory
102,-0.9,-0.6,28.0,10.0,40.0,pine
`

func TestParent(t *testing.T) {
	tables := lookup.Defaults()

	tests := []struct {
		code   int32
		label  string
		parent lookup.ParentClass
	}{
		{41, "Deciduous Forest", lookup.Forestland},
		{90, "Woody Wetlands", lookup.Forestland},
		{82, "Cultivated Crops", lookup.Cropland},
		{11, "Open Water", lookup.Wetland},
		{51, "Dwarf Scrub", lookup.NoParent},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			label, parent, err := tables.Parent(tt.code)
			if err != nil {
				t.Fatalf("parent failed: %v", err)
			}
			if label != tt.label || parent != tt.parent {
				t.Errorf("got (%s, %s), want (%s, %s)", label, parent, tt.label, tt.parent)
			}
		})
	}
}

func TestParentMissing(t *testing.T) {
	_, _, err := lookup.Defaults().Parent(7)

	var missing *lookup.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want *MissingError", err)
	}
	if missing.Table != "classes" || missing.Code != "7" {
		t.Errorf("got table %s code %s, want classes 7", missing.Table, missing.Code)
	}
	if !errors.Is(err, lookup.ErrMissingMapping) {
		t.Error("expected ErrMissingMapping")
	}
}

func TestConvert(t *testing.T) {
	classes := lookup.Defaults().Classes

	labels, unmapped := lookup.Convert([]int32{41, 7, 82, 7, 3}, classes)

	want := []string{"Deciduous Forest", lookup.Unclassified, "Cultivated Crops", lookup.Unclassified, lookup.Unclassified}
	if !slices.Equal(labels, want) {
		t.Errorf("labels: got %v, want %v", labels, want)
	}
	if !slices.Equal(unmapped, []int32{3, 7}) {
		t.Errorf("unmapped: got %v, want [3 7]", unmapped)
	}
}

func TestReadForestFactors(t *testing.T) {
	table, err := lookup.ReadForestFactors(strings.NewReader(factorsCSV))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("len: got %d, want 2", table.Len())
	}

	f, err := table.Get(101)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if f.NonforestToForest != -1.2 || f.RemainingForest != -0.8 {
		t.Errorf("removal factors: got %+v", f)
	}
	if f.Emission(lookup.Fire) != 30.5 || f.Emission(lookup.InsectDamage) != 12 || f.Emission(lookup.Harvest) != 45 {
		t.Errorf("emission factors: got %+v", f)
	}
}

func TestReadForestFactorsErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing column", "ForestAgeTypeRegion,Fire Emissions Factor\n1,2\n"},
		{"bad number", strings.Replace(factorsCSV, "30.5", "n/a", 1)},
		{"duplicate region", factorsCSV + "101,-1,-1,1,1,1,dup\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lookup.ReadForestFactors(strings.NewReader(tt.src))
			if !errors.Is(err, lookup.ErrInvalidTable) {
				t.Errorf("got %v, want ErrInvalidTable", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		factors  map[int32]lookup.ForestFactors
		expected []int32
		want     error
	}{
		{
			name:     "valid",
			factors:  map[int32]lookup.ForestFactors{1: {NonforestToForest: -1, RemainingForest: -0.5, Fire: 10}},
			expected: []int32{41, 82, 21},
		},
		{
			name:     "unknown class",
			expected: []int32{41, 99},
			want:     lookup.ErrMissingMapping,
		},
		{
			name:     "positive removal factor",
			factors:  map[int32]lookup.ForestFactors{1: {RemainingForest: 0.5}},
			expected: []int32{41},
			want:     lookup.ErrInvalidFactor,
		},
		{
			name:     "negative emission factor",
			factors:  map[int32]lookup.ForestFactors{1: {Harvest: -3}},
			expected: []int32{41},
			want:     lookup.ErrInvalidFactor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := lookup.Defaults()
			tables.Forest = lookup.NewTable("forest_factors", tt.factors)

			err := tables.Validate(tt.expected)
			if tt.want == nil && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	overrides := `classes:
  1: Forest
  2: Field
parents:
  Forest: Forestland
  Field: Grassland
disturbances:
  3: fire
`
	lookupsPath := filepath.Join(dir, "lookups.yaml")
	if err := os.WriteFile(lookupsPath, []byte(overrides), 0o644); err != nil {
		t.Fatal(err)
	}

	factorsPath := filepath.Join(dir, "factors.csv")
	if err := os.WriteFile(factorsPath, []byte(factorsCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := lookup.Load(lookupsPath, factorsPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if _, parent, err := tables.Parent(2); err != nil || parent != lookup.Grassland {
		t.Errorf("parent of 2: got %s %v, want Grassland", parent, err)
	}
	if d, err := tables.Disturbances.Get(3); err != nil || d != lookup.Fire {
		t.Errorf("disturbance 3: got %s %v, want fire", d, err)
	}
	if tables.Disturbances.Has(10) {
		t.Error("override should replace the default disturbance table")
	}
	if !tables.StockLoss.Has(lookup.Cropland) {
		t.Error("sections absent from the file should keep their defaults")
	}
	if tables.Forest.Len() != 2 {
		t.Errorf("forest factors: got %d, want 2", tables.Forest.Len())
	}
}

func TestLoadInvalidDisturbance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookups.yaml")
	if err := os.WriteFile(path, []byte("disturbances:\n  1: flood\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := lookup.Load(path, ""); !errors.Is(err, lookup.ErrInvalidTable) {
		t.Errorf("got %v, want ErrInvalidTable", err)
	}
}
