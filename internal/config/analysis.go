package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/lookup"
	"github.com/JaimeStill/landflux/pkg/formatting"
)

// NLCD release years.
var defaultValidYears = []int{2001, 2004, 2006, 2008, 2011, 2013, 2016, 2019, 2021}

// USA Contiguous Albers Equal Area Conic (USGS), the NLCD grid CRS.
const defaultCRS = "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"

// AnalysisConfig holds the methodology parameters of a run.
type AnalysisConfig struct {
	DataDir       string   `toml:"data_dir"`
	Region        string   `toml:"region"`
	FactorVersion string   `toml:"factor_version"`
	ValidYears    []int    `toml:"valid_years"`
	Periods       []string `toml:"periods"`
	CellSize      float64  `toml:"cell_size"`
	CRS           string   `toml:"crs"`
	CarbonToCO2   float64  `toml:"carbon_to_co2"`
	Workers       int      `toml:"workers"`
	Priority      []string `toml:"disturbance_priority"`
	CanopyScale   float64  `toml:"canopy_scale"`
	ClassNoData   float64  `toml:"class_nodata"`
	MaxRasterSize string   `toml:"max_raster_size"`
	Lookups       string   `toml:"lookups"`
	ForestFactors string   `toml:"forest_factors"`
	Attribution   bool     `toml:"attribution"`
	// ExpectedCodes are the land-cover codes the region's rasters may hold;
	// every one must resolve through the lookup tables at load.
	ExpectedCodes []int32 `toml:"expected_codes"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AnalysisConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AnalysisConfig) Merge(overlay *AnalysisConfig) {
	if overlay.DataDir != "" {
		c.DataDir = overlay.DataDir
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.FactorVersion != "" {
		c.FactorVersion = overlay.FactorVersion
	}
	if overlay.ValidYears != nil {
		c.ValidYears = overlay.ValidYears
	}
	if overlay.Periods != nil {
		c.Periods = overlay.Periods
	}
	if overlay.CellSize != 0 {
		c.CellSize = overlay.CellSize
	}
	if overlay.CRS != "" {
		c.CRS = overlay.CRS
	}
	if overlay.CarbonToCO2 != 0 {
		c.CarbonToCO2 = overlay.CarbonToCO2
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.Priority != nil {
		c.Priority = overlay.Priority
	}
	if overlay.CanopyScale != 0 {
		c.CanopyScale = overlay.CanopyScale
	}
	if overlay.ClassNoData != 0 {
		c.ClassNoData = overlay.ClassNoData
	}
	if overlay.MaxRasterSize != "" {
		c.MaxRasterSize = overlay.MaxRasterSize
	}
	if overlay.Lookups != "" {
		c.Lookups = overlay.Lookups
	}
	if overlay.ForestFactors != "" {
		c.ForestFactors = overlay.ForestFactors
	}
	if overlay.Attribution {
		c.Attribution = true
	}
	if overlay.ExpectedCodes != nil {
		c.ExpectedCodes = overlay.ExpectedCodes
	}
}

// Path resolves a configured path against DataDir. Absolute and empty paths
// are returned unchanged.
func (c *AnalysisConfig) Path(p string) string {
	if p == "" || c.DataDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// PeriodList returns the configured periods, or consecutive valid years when
// none are configured. Every period bound must be a valid year.
func (c *AnalysisConfig) PeriodList() ([]accounting.Period, error) {
	if len(c.Periods) == 0 {
		return accounting.ConsecutivePeriods(c.ValidYears), nil
	}

	periods := make([]accounting.Period, 0, len(c.Periods))
	for _, s := range c.Periods {
		p, err := accounting.ParsePeriod(s)
		if err != nil {
			return nil, err
		}
		for _, y := range []int{p.Start, p.End} {
			if !slices.Contains(c.ValidYears, y) {
				return nil, fmt.Errorf("period %s: %d is not a valid year", p, y)
			}
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// Options returns the evaluation options described by the config.
func (c *AnalysisConfig) Options() (accounting.Options, error) {
	opts := accounting.DefaultOptions()
	opts.CarbonToCO2 = c.CarbonToCO2
	opts.CanopyScale = c.CanopyScale
	opts.Attribution = c.Attribution

	priority := make([]lookup.Disturbance, 0, len(c.Priority))
	for _, name := range c.Priority {
		d, err := lookup.ParseDisturbance(name)
		if err != nil {
			return opts, err
		}
		priority = append(priority, d)
	}
	opts.Priority = priority
	return opts, nil
}

// MaxRasterBytes returns MaxRasterSize in bytes; zero means unlimited.
func (c *AnalysisConfig) MaxRasterBytes() int64 {
	if c.MaxRasterSize == "" {
		return 0
	}
	n, err := formatting.ParseBytes(c.MaxRasterSize)
	if err != nil {
		return 0
	}
	return n
}

func (c *AnalysisConfig) loadDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Region == "" {
		c.Region = "conus"
	}
	if c.FactorVersion == "" {
		c.FactorVersion = "2020"
	}
	if c.ValidYears == nil {
		c.ValidYears = slices.Clone(defaultValidYears)
	}
	if c.CellSize == 0 {
		c.CellSize = 30
	}
	if c.CRS == "" {
		c.CRS = defaultCRS
	}
	if c.CarbonToCO2 == 0 {
		c.CarbonToCO2 = accounting.CarbonToCO2
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Priority == nil {
		for _, d := range lookup.DefaultPriority {
			c.Priority = append(c.Priority, string(d))
		}
	}
	if c.CanopyScale == 0 {
		c.CanopyScale = 0.01
	}
	if c.ForestFactors == "" {
		c.ForestFactors = "ForestType/forest_raster_09172020.csv"
	}
	if c.ExpectedCodes == nil {
		c.ExpectedCodes = lookup.NLCDCodes()
	}
}

func (c *AnalysisConfig) loadEnv() {
	if v := os.Getenv("LANDFLUX_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LANDFLUX_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("LANDFLUX_FACTOR_VERSION"); v != "" {
		c.FactorVersion = v
	}
	if v := os.Getenv("LANDFLUX_PERIODS"); v != "" {
		c.Periods = splitList(v)
	}
	if v := os.Getenv("LANDFLUX_CELL_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.CellSize = f
		}
	}
	if v := os.Getenv("LANDFLUX_CRS"); v != "" {
		c.CRS = v
	}
	if v := os.Getenv("LANDFLUX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("LANDFLUX_DISTURBANCE_PRIORITY"); v != "" {
		c.Priority = splitList(v)
	}
	if v := os.Getenv("LANDFLUX_LOOKUPS"); v != "" {
		c.Lookups = v
	}
	if v := os.Getenv("LANDFLUX_FOREST_FACTORS"); v != "" {
		c.ForestFactors = v
	}
	if v := os.Getenv("LANDFLUX_EXPECTED_CODES"); v != "" {
		var codes []int32
		for _, part := range splitList(v) {
			if n, err := strconv.ParseInt(part, 10, 32); err == nil {
				codes = append(codes, int32(n))
			}
		}
		c.ExpectedCodes = codes
	}
}

func (c *AnalysisConfig) validate() error {
	if len(c.ValidYears) < 2 {
		return fmt.Errorf("valid_years needs at least two years")
	}
	if !slices.IsSorted(c.ValidYears) {
		return fmt.Errorf("valid_years must be ascending")
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive")
	}
	if c.CarbonToCO2 <= 0 || math.IsInf(c.CarbonToCO2, 0) || math.IsNaN(c.CarbonToCO2) {
		return fmt.Errorf("carbon_to_co2 must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.CanopyScale <= 0 {
		return fmt.Errorf("canopy_scale must be positive")
	}
	if len(c.ExpectedCodes) == 0 {
		return fmt.Errorf("expected_codes must list at least one land-cover code")
	}
	if c.MaxRasterSize != "" {
		if _, err := formatting.ParseBytes(c.MaxRasterSize); err != nil {
			return fmt.Errorf("invalid max_raster_size: %w", err)
		}
	}

	seen := make(map[string]bool, len(c.Priority))
	for _, name := range c.Priority {
		if _, err := lookup.ParseDisturbance(name); err != nil {
			return fmt.Errorf("disturbance_priority: %w", err)
		}
		if seen[name] {
			return fmt.Errorf("disturbance_priority lists %s twice", name)
		}
		seen[name] = true
	}

	if _, err := c.PeriodList(); err != nil {
		return err
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
