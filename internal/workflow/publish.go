package workflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/JaimeStill/landflux/internal/accounting"
	"github.com/JaimeStill/landflux/internal/report"
	"github.com/JaimeStill/landflux/pkg/formatting"
	"github.com/JaimeStill/landflux/pkg/raster"
	"github.com/JaimeStill/landflux/pkg/storage"
)

// Content types of published outputs.
const (
	ContentCSV   = "text/csv"
	ContentTOML  = "application/toml"
	ContentXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentPNG   = "image/png"
	ContentASCII = "text/plain"
)

var unsafeName = regexp.MustCompile(`[^0-9A-Za-z_.-]+`)

// SafeName reduces s to characters safe in a file name.
func SafeName(s string) string {
	return strings.Trim(unsafeName.ReplaceAllString(s, "_"), "_")
}

// UnitName names the files of one unit.
func UnitName(unit accounting.Unit) string {
	return SafeName(unit.Zone.ID) + "_" + unit.Period.String()
}

// Publisher writes the outputs of one run under a single storage folder.
type Publisher struct {
	storage storage.System
	folder  string
	logger  *slog.Logger
	files   []string
}

// NewPublisher creates a publisher for a run of command started at started.
func (rt *Runtime) NewPublisher(command string, started time.Time) *Publisher {
	folder := fmt.Sprintf("%s_%s_%s",
		command, SafeName(rt.Config.Analysis.Region), started.Format("20060102_150405"))

	return &Publisher{
		storage: rt.Storage,
		folder:  folder,
		logger:  rt.Logger.With("folder", folder),
	}
}

// Folder returns the run folder key.
func (p *Publisher) Folder() string {
	return p.folder
}

// Files returns the keys published so far.
func (p *Publisher) Files() []string {
	return p.files
}

// Publish renders write into a buffer and uploads it as folder/name.
// Existing outputs are never overwritten.
func (p *Publisher) Publish(ctx context.Context, name, contentType string, write func(io.Writer) error) error {
	key := path.Join(p.folder, name)
	exists, err := p.storage.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrOutputExists, key)
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	size := int64(buf.Len())
	if err := p.storage.Upload(ctx, key, &buf, contentType); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}

	p.files = append(p.files, key)
	p.logger.InfoContext(ctx, "output published",
		"location", p.storage.Location(key),
		"size", formatting.FormatBytes(size, 1),
	)
	return nil
}

// Table publishes t as a plain CSV file.
func (p *Publisher) Table(ctx context.Context, name string, t report.Table) error {
	return p.Publish(ctx, name, ContentCSV, func(w io.Writer) error {
		return report.WriteCSV(w, t)
	})
}

// Tables publishes several titled tables in one CSV file.
func (p *Publisher) Tables(ctx context.Context, name string, tables ...report.Table) error {
	return p.Publish(ctx, name, ContentCSV, func(w io.Writer) error {
		return report.WriteTables(w, tables...)
	})
}

// Config publishes the run configuration snapshot.
func (p *Publisher) Config(ctx context.Context, rt *Runtime) error {
	return p.Publish(ctx, "config.toml", ContentTOML, rt.Config.Write)
}

// Issues publishes the issue log.
func (p *Publisher) Issues(ctx context.Context, issues []accounting.Issue) error {
	return p.Table(ctx, "issues.csv", report.Issues(issues))
}

// Attribution publishes the attribution grid of every result that has one.
// Nil results, left by skipped units, are ignored.
func (p *Publisher) Attribution(ctx context.Context, results []*accounting.Result) error {
	for _, res := range results {
		if res == nil || res.Attribution == nil {
			continue
		}
		name := path.Join("attribution", UnitName(res.Unit)+".asc")
		grid := res.Attribution
		if err := p.Publish(ctx, name, ContentASCII, func(w io.Writer) error {
			return raster.WriteASCII(w, grid)
		}); err != nil {
			return err
		}
	}
	return nil
}
