// Package pipeline drives one full scrape run: harvest the three rolling
// day listings, deep-resolve every match, fold in the secondary provider's
// player URLs, reconcile with the persisted rows and refresh them atomically.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"matchstream/browser"
	"matchstream/config"
	"matchstream/diag"
	"matchstream/harvest"
	"matchstream/match"
	"matchstream/merge"
	"matchstream/normalize"
	"matchstream/pool"
	"matchstream/resolve"
	"matchstream/scorer"
	"matchstream/textnorm"
)

// Persister is the slice of the store a run needs.
type Persister interface {
	ExistingForDays(ctx context.Context, days []string) ([]match.Record, error)
	RefreshDays(ctx context.Context, days []string, batch []match.Record) error
}

// Pipeline holds everything a run needs. Build one with New and call Run.
type Pipeline struct {
	cfg   *config.Config
	log   *logrus.Logger
	store Persister
	loc   *time.Location
}

// New assembles a pipeline from configuration.
func New(cfg *config.Config, st Persister, log *logrus.Logger) (*Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, log: log, store: st, loc: loc}, nil
}

// Run executes one scrape. Per-match failures degrade to null results; a
// failed listing day is skipped; only persistence errors abort the run. A
// run that harvested nothing at all is a no-op and never touches the
// stored rows.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := p.log.WithField("run", runID)
	started := time.Now()

	rec := diag.New(p.cfg.DiagEnabled || p.cfg.Debug, p.cfg.DiagDir, runID, p.log)

	engine := browser.NewEngine(p.browserConfig(), p.log)

	// Phase 1: listings for the three rolling days, one session for all.
	summaries := p.harvestListings(ctx, engine, rec, log)
	if len(summaries) == 0 {
		log.Warn("no matches harvested, leaving stored rows untouched")
		return nil
	}
	log.WithField("matches", len(summaries)).Info("listings harvested")

	// Phase 2: deep resolution, bounded concurrency, one session per worker.
	resolved := p.resolvePrimary(ctx, engine, rec, summaries)
	streams := 0
	for _, r := range resolved {
		if r.StreamURL != "" {
			streams++
		}
	}
	log.WithFields(logrus.Fields{"resolved": len(resolved), "streams": streams}).
		Info("deep resolution done")

	now := time.Now()
	fresh := normalize.Batch(resolved, now, p.loc)
	log.WithField("records", len(fresh)).Info("batch normalized")

	// Phase 3: the alternate provider's player URLs, attached by match key.
	p.attachSecondary(ctx, engine, rec, fresh, log)

	// Phase 4: reconcile against what is already stored and refresh.
	days := make([]string, 0, len(match.Days))
	for _, d := range match.Days {
		days = append(days, d.Date(now, p.loc))
	}
	existing, err := p.store.ExistingForDays(ctx, days)
	if err != nil {
		return fmt.Errorf("reading existing rows: %w", err)
	}
	final := merge.Batch(fresh, existing, now)

	if err := p.store.RefreshDays(ctx, days, final); err != nil {
		return fmt.Errorf("persisting run %s: %w", runID, err)
	}

	rec.WriteJSON("run.json", map[string]any{
		"run":       runID,
		"days":      days,
		"harvested": len(summaries),
		"persisted": len(final),
		"streams":   streams,
		"elapsed":   time.Since(started).String(),
	})
	log.WithFields(logrus.Fields{"rows": len(final), "elapsed": time.Since(started)}).
		Info("run complete")
	return nil
}

func (p *Pipeline) browserConfig() browser.Config {
	bc := browser.DefaultConfig()
	bc.Headless = p.cfg.Headless
	bc.TimezoneID = p.cfg.Timezone
	bc.BlockedHosts = scorer.AdHosts
	return bc
}

func (p *Pipeline) harvestOptions() harvest.Options {
	o := harvest.DefaultOptions()
	if p.cfg.ListTimeout > 0 {
		o.ListTimeout = p.cfg.ListTimeout
	}
	if p.cfg.SettleMax > 0 {
		o.SettleMax = p.cfg.SettleMax
	}
	if p.cfg.SettleFor > 0 {
		o.SettleFor = p.cfg.SettleFor
	}
	return o
}

func (p *Pipeline) resolveOptions() resolve.Options {
	o := resolve.DefaultOptions()
	if p.cfg.DeepTimeout > 0 {
		o.DeepTimeout = p.cfg.DeepTimeout
	}
	if p.cfg.SecondaryMax > 0 {
		o.SecondaryMax = p.cfg.SecondaryMax
	}
	if p.cfg.SecondaryPoll > 0 {
		o.SecondaryPoll = p.cfg.SecondaryPoll
	}
	return o
}

func site(sc config.SiteConfig) harvest.Site {
	urls := make(map[match.DayKey]string, 3)
	for key, u := range sc.DayURLs() {
		urls[match.DayKey(key)] = u
	}
	return harvest.Site{Name: sc.Name, BaseURL: sc.BaseURL, DayURLs: urls}
}

// harvestListings walks the primary site's three day tabs in one session.
// A day that fails to load is logged and skipped.
func (p *Pipeline) harvestListings(ctx context.Context, engine *browser.Engine, rec *diag.Recorder, log *logrus.Entry) []match.Summary {
	h := &harvest.Harvester{
		Site: site(p.cfg.Primary),
		Opts: p.harvestOptions(),
		Log:  p.log,
		Diag: rec,
	}

	sess, err := engine.NewSession(ctx)
	if err != nil {
		log.WithError(err).Error("listing session unavailable")
		return nil
	}
	defer sess.Close()

	var all []match.Summary
	for _, day := range match.Days {
		rows, err := h.Day(sess, day)
		if err != nil {
			log.WithError(err).WithField("day", day).Warn("listing day skipped")
			continue
		}
		all = append(all, rows...)
	}
	return all
}

// resolvePrimary fans the summaries across the worker pool, one browsing
// session per worker.
func (p *Pipeline) resolvePrimary(ctx context.Context, engine *browser.Engine, rec *diag.Recorder, summaries []match.Summary) []match.Resolved {
	prim := &resolve.Primary{
		Scorer: scorer.New(),
		Opts:   p.resolveOptions(),
		Log:    p.log,
		Diag:   rec,
	}

	return pool.Run(ctx, p.cfg.Concurrency, summaries, p.log,
		func(ctx context.Context) (*browser.Session, func(), error) {
			sess, err := engine.NewSession(ctx)
			if err != nil {
				return nil, nil, err
			}
			return sess, sess.Close, nil
		},
		func(_ context.Context, sess *browser.Session, sum match.Summary) match.Resolved {
			return prim.Resolve(sess, sum)
		},
	)
}

// attachSecondary harvests the alternate provider, resolves its wrapper
// pages into player URLs and attaches each to the matching record's second
// stream slot. The secondary source is best-effort throughout.
func (p *Pipeline) attachSecondary(ctx context.Context, engine *browser.Engine, rec *diag.Recorder, fresh []match.Record, log *logrus.Entry) {
	if p.cfg.Secondary.BaseURL == "" {
		return
	}

	h := &harvest.Harvester{
		Site: site(p.cfg.Secondary),
		Opts: p.harvestOptions(),
		Log:  p.log,
		Diag: rec,
	}

	sess, err := engine.NewSession(ctx)
	if err != nil {
		log.WithError(err).Warn("secondary listing session unavailable")
		return
	}

	var items []match.SecondaryItem
	for _, day := range match.Days {
		rows, err := h.SecondaryDay(sess, day)
		if err != nil {
			log.WithError(err).WithField("day", day).Warn("secondary day skipped")
			continue
		}
		items = append(items, rows...)
	}
	sess.Close()

	byKey := make(map[string]*match.Record, len(fresh))
	for i := range fresh {
		byKey[fresh[i].MatchKey] = &fresh[i]
	}

	// Only wrapper pages whose match already exists in the batch are worth
	// resolving.
	now := time.Now()
	wanted := items[:0]
	keys := make([]string, 0, len(items))
	for _, item := range items {
		key := p.secondaryKey(item, now)
		if _, ok := byKey[key]; !ok {
			continue
		}
		wanted = append(wanted, item)
		keys = append(keys, key)
	}
	if len(wanted) == 0 {
		log.Info("no secondary matches to resolve")
		return
	}
	log.WithField("matches", len(wanted)).Info("resolving secondary streams")

	sec := &resolve.Secondary{
		Scorer: scorer.New(),
		Opts:   p.resolveOptions(),
		Log:    p.log,
		Diag:   rec,
	}
	urls := pool.Run(ctx, p.cfg.Concurrency, wanted, p.log,
		func(ctx context.Context) (*browser.Session, func(), error) {
			sess, err := engine.NewSession(ctx)
			if err != nil {
				return nil, nil, err
			}
			return sess, sess.Close, nil
		},
		func(_ context.Context, sess *browser.Session, item match.SecondaryItem) string {
			return sec.Resolve(sess, item)
		},
	)

	attached := 0
	for i, u := range urls {
		if u == "" || !resolve.IsPlayerURL(u) {
			continue
		}
		if r := byKey[keys[i]]; r != nil && r.StreamURL2 == "" {
			r.StreamURL2 = u
			attached++
		}
	}
	log.WithField("attached", attached).Info("secondary streams attached")
}

// secondaryKey derives the durable match key for a secondary card, using
// its start attribute's calendar day when present so the two providers'
// day tabs do not have to line up.
func (p *Pipeline) secondaryKey(item match.SecondaryItem, now time.Time) string {
	day := ""
	if start := textnorm.StartFromAttr(item.StartAttr, p.loc); !start.IsZero() {
		day = textnorm.DayOf(start, p.loc)
	} else {
		day = item.Day.Date(now, p.loc)
	}
	return match.Key(day, item.HomeTeam, item.AwayTeam)
}
