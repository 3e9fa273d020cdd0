// Package feed wires the pipeline together: read the source document,
// build events, encode the calendar.
package feed

import (
	"context"
	"time"

	"schedics/internal/cache"
	"schedics/internal/config"
	"schedics/internal/ical"
	appLog "schedics/internal/log"
	"schedics/internal/model"
	"schedics/internal/schedule"
	"schedics/internal/source"
)

// Generator runs one sequential pipeline pass per call. It holds no
// mutable state; callers own caching and retry policy.
type Generator struct {
	cfg    *config.Config
	reader source.Reader

	// Now stamps the generated document; overridable in tests to keep
	// output byte-comparable.
	Now func() time.Time
}

// New builds a generator on an explicit reader. Use DefaultReader for
// the production source.
func New(cfg *config.Config, reader source.Reader) *Generator {
	return &Generator{cfg: cfg, reader: reader, Now: time.Now}
}

// DefaultReader constructs the Yandex.Disk reader described by cfg.
// token is an optional OAuth token (from the environment, not the
// config file).
func DefaultReader(cfg *config.Config, token string) source.Reader {
	return source.NewDiskReader(cfg.Source.PublicLink, token, cfg.SourceTimeout(), source.ScanOptions{
		Sheet:         cfg.Source.Sheet,
		MaxHeaderRows: cfg.Scan.MaxHeaderRows,
		DateScanUp:    cfg.Scan.DateScanUp,
	})
}

// Document runs read + build and returns the normalized document.
func (g *Generator) Document(ctx context.Context) (*model.Document, error) {
	entries, err := g.reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	loc, err := g.cfg.Location()
	if err != nil {
		return nil, err
	}

	var weekStart time.Time
	if ws := g.cfg.Schedule.WeekStart; ws != "" {
		weekStart, err = time.ParseInLocation("2006-01-02", ws, loc)
		if err != nil {
			return nil, err
		}
	}

	events, err := schedule.Build(entries, schedule.Options{
		Location:  loc,
		Year:      g.cfg.Schedule.Year,
		WeekStart: weekStart,
		UIDPrefix: g.cfg.Schedule.UIDPrefix,
		Abort:     g.cfg.Schedule.OnUnparseable == config.PolicyAbort,
	})
	if err != nil {
		return nil, err
	}

	appLog.Info("schedule built", "entries", len(entries), "events", len(events))

	return &model.Document{
		Name:        g.cfg.Calendar.Name,
		Timezone:    g.cfg.Schedule.Timezone,
		GeneratedAt: g.Now(),
		Events:      events,
	}, nil
}

// Generate runs the full pipeline and returns the encoded feed.
func (g *Generator) Generate(ctx context.Context) (cache.Feed, error) {
	doc, err := g.Document(ctx)
	if err != nil {
		return cache.Feed{}, err
	}
	return cache.Feed{Body: ical.Encode(doc), GeneratedAt: doc.GeneratedAt}, nil
}
