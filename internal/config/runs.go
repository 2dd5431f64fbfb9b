package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/landflux/pkg/pagination"
)

// RunsConfig sets how `landflux runs` pages the results store.
type RunsConfig struct {
	PageSize    int `toml:"page_size"`
	MaxPageSize int `toml:"max_page_size"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RunsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RunsConfig) Merge(overlay *RunsConfig) {
	if overlay.PageSize != 0 {
		c.PageSize = overlay.PageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
}

// Paging returns the page bounds of run listings.
func (c *RunsConfig) Paging() pagination.Config {
	return pagination.Config{DefaultPageSize: c.PageSize, MaxPageSize: c.MaxPageSize}
}

func (c *RunsConfig) loadDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 20
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = 100
	}
}

func (c *RunsConfig) loadEnv() {
	if v := os.Getenv("LANDFLUX_RUNS_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageSize = n
		}
	}
	if v := os.Getenv("LANDFLUX_RUNS_MAX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxPageSize = n
		}
	}
}

func (c *RunsConfig) validate() error {
	if c.PageSize < 1 || c.MaxPageSize < 1 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.PageSize > c.MaxPageSize {
		return fmt.Errorf("page_size %d exceeds max_page_size %d", c.PageSize, c.MaxPageSize)
	}
	return nil
}
