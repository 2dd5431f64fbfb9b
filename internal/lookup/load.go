package lookup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrides is the YAML shape of a lookup override file. Each present
// section replaces the corresponding default table wholesale.
type overrides struct {
	Classes      map[int32]string            `yaml:"classes"`
	Parents      map[string]ParentClass      `yaml:"parents"`
	Disturbances map[int32]string            `yaml:"disturbances"`
	StockLoss    map[ParentClass]PoolFactors `yaml:"stock_loss"`
	Maturity     map[int32]string            `yaml:"maturity"`
	Protection   map[int32]string            `yaml:"protection"`
}

// Load returns the default tables with any sections of the YAML file at path
// applied, then attaches the forest factors read from factorsPath. Either
// path may be empty.
func Load(path, factorsPath string) (*Tables, error) {
	t := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read lookups: %w", err)
		}
		if err := t.apply(data); err != nil {
			return nil, fmt.Errorf("lookups %s: %w", path, err)
		}
	}

	if factorsPath != "" {
		forest, err := LoadForestFactors(factorsPath)
		if err != nil {
			return nil, err
		}
		t.Forest = forest
	}

	return t, nil
}

func (t *Tables) apply(data []byte) error {
	var o overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	if o.Classes != nil {
		t.Classes = NewTable("classes", o.Classes)
	}
	if o.Parents != nil {
		t.Parents = NewTable("parents", o.Parents)
	}
	if o.Disturbances != nil {
		codes := make(map[int32]Disturbance, len(o.Disturbances))
		for code, name := range o.Disturbances {
			d, err := ParseDisturbance(name)
			if err != nil {
				return fmt.Errorf("disturbance code %d: %w", code, err)
			}
			codes[code] = d
		}
		t.Disturbances = NewTable("disturbances", codes)
	}
	if o.StockLoss != nil {
		t.StockLoss = NewTable("stock_loss", o.StockLoss)
	}
	if o.Maturity != nil {
		t.Maturity = NewTable("maturity", o.Maturity)
	}
	if o.Protection != nil {
		t.Protection = NewTable("protection", o.Protection)
	}
	return nil
}
