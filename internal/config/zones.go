package config

import (
	"fmt"
	"os"
	"strconv"
)

// ZonesConfig locates a reporting-zone shapefile.
type ZonesConfig struct {
	Path      string   `toml:"path"`
	IDField   string   `toml:"id_field"`
	NameField string   `toml:"name_field"`
	Fields    []string `toml:"fields"`
}

// Finalize applies defaults, environment variable overrides read under
// prefix, and validation.
func (c *ZonesConfig) Finalize(prefix string) error {
	c.loadDefaults()
	c.loadEnv(prefix)
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ZonesConfig) Merge(overlay *ZonesConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.IDField != "" {
		c.IDField = overlay.IDField
	}
	if overlay.NameField != "" {
		c.NameField = overlay.NameField
	}
	if overlay.Fields != nil {
		c.Fields = overlay.Fields
	}
}

func (c *ZonesConfig) loadDefaults() {
	if c.IDField == "" {
		c.IDField = "GEOID"
	}
	if c.NameField == "" {
		c.NameField = "NAME"
	}
}

func (c *ZonesConfig) loadEnv(prefix string) {
	if v := os.Getenv(prefix + "_PATH"); v != "" {
		c.Path = v
	}
	if v := os.Getenv(prefix + "_ID_FIELD"); v != "" {
		c.IDField = v
	}
	if v := os.Getenv(prefix + "_NAME_FIELD"); v != "" {
		c.NameField = v
	}
}

func (c *ZonesConfig) validate() error {
	if c.IDField == "" {
		return fmt.Errorf("id_field required")
	}
	return nil
}

// TOF fallback factors used when no factor polygon applies.
const (
	FallbackRemovalFactor  = -3.0
	FallbackEmissionFactor = 95.0
)

// CommunitiesConfig holds the community zones and the sources of their
// trees-outside-forest factors and demographics.
type CommunitiesConfig struct {
	Zones ZonesConfig `toml:"zones"`

	// EmissionFactor and RemovalFactor, when set, apply to every community
	// and skip the polygon lookups.
	EmissionFactor *float64 `toml:"emission_factor,omitempty"`
	RemovalFactor  *float64 `toml:"removal_factor,omitempty"`

	States            string   `toml:"states"`
	StateFactorField  string   `toml:"state_factor_field"`
	Places            string   `toml:"places"`
	PlaceFactorField  string   `toml:"place_factor_field"`
	FactorNameField   string   `toml:"factor_name_field"`
	FallbackRemoval   float64  `toml:"fallback_removal_factor"`
	FallbackEmission  float64  `toml:"fallback_emission_factor"`
	Demographics      string   `toml:"demographics"`
	DemographicFields []string `toml:"demographic_fields"`
	Chart             bool     `toml:"chart"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CommunitiesConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	if err := c.Zones.Finalize("LANDFLUX_COMMUNITIES_ZONES"); err != nil {
		return fmt.Errorf("zones: %w", err)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CommunitiesConfig) Merge(overlay *CommunitiesConfig) {
	c.Zones.Merge(&overlay.Zones)
	if overlay.EmissionFactor != nil {
		c.EmissionFactor = overlay.EmissionFactor
	}
	if overlay.RemovalFactor != nil {
		c.RemovalFactor = overlay.RemovalFactor
	}
	if overlay.States != "" {
		c.States = overlay.States
	}
	if overlay.StateFactorField != "" {
		c.StateFactorField = overlay.StateFactorField
	}
	if overlay.Places != "" {
		c.Places = overlay.Places
	}
	if overlay.PlaceFactorField != "" {
		c.PlaceFactorField = overlay.PlaceFactorField
	}
	if overlay.FactorNameField != "" {
		c.FactorNameField = overlay.FactorNameField
	}
	if overlay.FallbackRemoval != 0 {
		c.FallbackRemoval = overlay.FallbackRemoval
	}
	if overlay.FallbackEmission != 0 {
		c.FallbackEmission = overlay.FallbackEmission
	}
	if overlay.Demographics != "" {
		c.Demographics = overlay.Demographics
	}
	if overlay.DemographicFields != nil {
		c.DemographicFields = overlay.DemographicFields
	}
	if overlay.Chart {
		c.Chart = true
	}
}

func (c *CommunitiesConfig) loadDefaults() {
	if c.StateFactorField == "" {
		c.StateFactorField = "tof_rf"
	}
	if c.PlaceFactorField == "" {
		c.PlaceFactorField = "tof_ef"
	}
	if c.FactorNameField == "" {
		c.FactorNameField = "NAME"
	}
	if c.FallbackRemoval == 0 {
		c.FallbackRemoval = FallbackRemovalFactor
	}
	if c.FallbackEmission == 0 {
		c.FallbackEmission = FallbackEmissionFactor
	}
}

func (c *CommunitiesConfig) loadEnv() {
	if v := os.Getenv("LANDFLUX_COMMUNITIES_EMISSION_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.EmissionFactor = &f
		}
	}
	if v := os.Getenv("LANDFLUX_COMMUNITIES_REMOVAL_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RemovalFactor = &f
		}
	}
	if v := os.Getenv("LANDFLUX_COMMUNITIES_STATES"); v != "" {
		c.States = v
	}
	if v := os.Getenv("LANDFLUX_COMMUNITIES_PLACES"); v != "" {
		c.Places = v
	}
	if v := os.Getenv("LANDFLUX_COMMUNITIES_DEMOGRAPHICS"); v != "" {
		c.Demographics = v
	}
}

func (c *CommunitiesConfig) validate() error {
	if c.EmissionFactor != nil && *c.EmissionFactor < 0 {
		return fmt.Errorf("emission_factor must not be negative")
	}
	if c.RemovalFactor != nil && *c.RemovalFactor > 0 {
		return fmt.Errorf("removal_factor must not be positive")
	}
	if c.FallbackEmission < 0 {
		return fmt.Errorf("fallback_emission_factor must not be negative")
	}
	if c.FallbackRemoval > 0 {
		return fmt.Errorf("fallback_removal_factor must not be positive")
	}
	if c.Demographics != "" && len(c.DemographicFields) == 0 {
		return fmt.Errorf("demographic_fields required with demographics")
	}
	return nil
}
