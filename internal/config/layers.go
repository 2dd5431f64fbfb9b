package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/landflux/internal/accounting"
)

// Path template tokens.
const (
	TokenYear  = "{year}"
	TokenYear1 = "{year1}"
	TokenYear2 = "{year2}"
)

// LayersConfig holds raster path templates, relative to the data dir.
// LandCover and Canopy take {year}; every template may use {year1} and
// {year2} for the period bounds. Empty optional layers are not read.
type LayersConfig struct {
	LandCover         string   `toml:"land_cover"`
	ForestType        string   `toml:"forest_type"`
	Biomass           string   `toml:"carbon_biomass"`
	DeadOrganicMatter string   `toml:"carbon_dead_organic_matter"`
	SoilOrganic       string   `toml:"carbon_soil_organic"`
	Disturbances      []string `toml:"disturbances"`
	Canopy            string   `toml:"tree_canopy"`
	Plantable         string   `toml:"plantable"`
	Maturity          string   `toml:"maturity"`
	Protection        string   `toml:"protection"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LayersConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LayersConfig) Merge(overlay *LayersConfig) {
	if overlay.LandCover != "" {
		c.LandCover = overlay.LandCover
	}
	if overlay.ForestType != "" {
		c.ForestType = overlay.ForestType
	}
	if overlay.Biomass != "" {
		c.Biomass = overlay.Biomass
	}
	if overlay.DeadOrganicMatter != "" {
		c.DeadOrganicMatter = overlay.DeadOrganicMatter
	}
	if overlay.SoilOrganic != "" {
		c.SoilOrganic = overlay.SoilOrganic
	}
	if overlay.Disturbances != nil {
		c.Disturbances = overlay.Disturbances
	}
	if overlay.Canopy != "" {
		c.Canopy = overlay.Canopy
	}
	if overlay.Plantable != "" {
		c.Plantable = overlay.Plantable
	}
	if overlay.Maturity != "" {
		c.Maturity = overlay.Maturity
	}
	if overlay.Protection != "" {
		c.Protection = overlay.Protection
	}
}

// Expand substitutes the year tokens of template for one year of period.
func Expand(template string, period accounting.Period, year int) string {
	return strings.NewReplacer(
		TokenYear, strconv.Itoa(year),
		TokenYear1, strconv.Itoa(period.Start),
		TokenYear2, strconv.Itoa(period.End),
	).Replace(template)
}

func (c *LayersConfig) loadDefaults() {
	if c.LandCover == "" {
		c.LandCover = "LandCover/NLCD_{year}_Land_Cover_l48_20210604.tif"
	}
	if c.ForestType == "" {
		c.ForestType = "ForestType/forest_raster_07232020.tif"
	}
	if c.Biomass == "" {
		c.Biomass = "Carbon/carbon_ag_bg_us.tif"
	}
	if c.DeadOrganicMatter == "" {
		c.DeadOrganicMatter = "Carbon/carbon_sd_dd_lt.tif"
	}
	if c.SoilOrganic == "" {
		c.SoilOrganic = "Carbon/carbon_so.tif"
	}
}

func (c *LayersConfig) loadEnv() {
	if v := os.Getenv("LANDFLUX_LAYERS_LAND_COVER"); v != "" {
		c.LandCover = v
	}
	if v := os.Getenv("LANDFLUX_LAYERS_TREE_CANOPY"); v != "" {
		c.Canopy = v
	}
	if v := os.Getenv("LANDFLUX_LAYERS_DISTURBANCES"); v != "" {
		c.Disturbances = splitList(v)
	}
}

func (c *LayersConfig) validate() error {
	if !strings.Contains(c.LandCover, TokenYear) {
		return fmt.Errorf("land_cover must contain %s", TokenYear)
	}
	if c.Canopy != "" && !strings.Contains(c.Canopy, TokenYear) {
		return fmt.Errorf("tree_canopy must contain %s", TokenYear)
	}
	return nil
}
