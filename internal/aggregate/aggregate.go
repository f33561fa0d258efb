// ABOUTME: Runs fetch and assembly over every configured collection and display mode
// ABOUTME: Failures are isolated per collection; each success becomes one feed artifact

package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/pubfeed/internal/assemble"
	"github.com/harper/pubfeed/internal/config"
	"github.com/harper/pubfeed/internal/feedwriter"
	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/normalize"
	"github.com/harper/pubfeed/internal/opml"
	"github.com/harper/pubfeed/internal/paginate"
)

// DefaultGenerator is the channel generator string when none is configured.
const DefaultGenerator = "pubfeed"

// Status is the observable result for one collection and mode.
type Status string

const (
	StatusWritten     Status = "written"
	StatusRendered    Status = "rendered" // dry run: built but not written
	StatusEmpty       Status = "empty"
	StatusFailed      Status = "failed"
	StatusWriteFailed Status = "write-failed"
)

// Outcome describes what happened to one artifact.
type Outcome struct {
	Mode       models.DisplayMode
	Collection models.CollectionSpec
	File       string
	Items      int
	Skipped    int
	Partial    bool
	Status     Status
	Err        error
}

// Produced reports whether the artifact exists after the run.
func (o Outcome) Produced() bool {
	return o.Status == StatusWritten || o.Status == StatusRendered
}

// Failed reports whether the artifact is missing because of an error.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusWriteFailed
}

// Report summarizes a run.
type Report struct {
	Outcomes  []Outcome
	IndexFile string
	IndexErr  error
	Started   time.Time
	Finished  time.Time
}

// Produced counts artifacts that exist after the run.
func (r *Report) Produced() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Produced() {
			n++
		}
	}
	return n
}

// Failures counts artifacts missing because of an error.
func (r *Report) Failures() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// TotalFailure reports a run where something failed and nothing was produced.
func (r *Report) TotalFailure() bool {
	return r.Failures() > 0 && r.Produced() == 0
}

// PartialFailure reports a run that produced output but lost at least one
// artifact or published a truncated collection.
func (r *Report) PartialFailure() bool {
	if r.TotalFailure() {
		return false
	}
	if r.Failures() > 0 || r.IndexErr != nil {
		return true
	}
	for _, o := range r.Outcomes {
		if o.Partial {
			return true
		}
	}
	return false
}

// Artifact is one collection rendered for one mode.
type Artifact struct {
	Mode       models.DisplayMode
	Collection models.CollectionSpec
	File       string
	Channel    models.Channel
	Items      []models.Item
	Result     *paginate.Result
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the build timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithObserver receives every state transition.
func WithObserver(fn func(Transition)) Option {
	return func(a *Aggregator) {
		a.observer = fn
	}
}

// Aggregator turns configured collections into feed artifacts.
type Aggregator struct {
	source   paginate.PageSource
	sink     Sink
	logger   *log.Logger
	now      func() time.Time
	observer func(Transition)
}

// New returns an Aggregator reading pages from source and storing artifacts
// in sink.
func New(source paginate.PageSource, sink Sink, logger *log.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &Aggregator{
		source: source,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run processes every configured mode and collection once, in order. The
// returned error is reserved for problems that stop the whole run before any
// collection is attempted; per-collection failures are in the report.
func (a *Aggregator) Run(ctx context.Context, cfg *config.Config, dryRun bool) (*Report, error) {
	writer, err := feedwriter.New(cfg.FeedFormat(), a.logger)
	if err != nil {
		return nil, err
	}

	built := a.now()
	report := &Report{Started: built}
	m := &machine{observer: a.observer}
	fetcher := paginate.New(a.source, cfg.PaginateOptions(), a.logger)

	for _, mode := range cfg.DisplayModes() {
		for _, spec := range cfg.Collections {
			outcome, err := a.runOne(ctx, m, cfg, fetcher, writer, spec, mode, built, dryRun)
			if err != nil {
				return nil, err
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}
	if err := m.to(StateDone, "", ""); err != nil {
		return nil, err
	}

	if file := cfg.OPMLFile(); file != "" && !dryRun && report.Produced() > 0 {
		report.IndexFile = file
		report.IndexErr = a.writeIndex(cfg, report, file)
		if report.IndexErr != nil {
			a.logger.Error("failed to write feed index", "file", file, "err", report.IndexErr)
		}
	}

	report.Finished = a.now()
	a.logger.Info("run finished",
		"produced", report.Produced(),
		"failed", report.Failures(),
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return report, nil
}

func (a *Aggregator) runOne(ctx context.Context, m *machine, cfg *config.Config, fetcher *paginate.Fetcher,
	writer feedwriter.Writer, spec models.CollectionSpec, mode models.DisplayMode, built time.Time, dryRun bool) (Outcome, error) {

	outcome := Outcome{Mode: mode, Collection: spec, File: spec.FileName(mode)}
	logger := a.logger.With("collection", spec.Name, "mode", mode)

	if err := m.to(StateFetchingCollection, string(mode), spec.Name); err != nil {
		return outcome, err
	}
	artifact, err := a.collect(ctx, cfg, fetcher, spec, mode, built)
	if artifact == nil {
		if err := m.to(StateFailed, string(mode), spec.Name); err != nil {
			return outcome, err
		}
		outcome.Status = StatusFailed
		outcome.Err = err
		logger.Error("collection failed, no feed written", "file", outcome.File, "err", err)
		return outcome, nil
	}

	if err := m.to(StateNormalizingItems, string(mode), spec.Name); err != nil {
		return outcome, err
	}
	outcome.Items = len(artifact.Items)
	outcome.Skipped = artifact.Result.Skipped
	if err != nil {
		outcome.Partial = true
		outcome.Err = err
		logger.Warn("publishing partial collection", "items", outcome.Items, "err", err)
	}
	if err := m.to(StateSorted, string(mode), spec.Name); err != nil {
		return outcome, err
	}

	if len(artifact.Items) == 0 {
		outcome.Status = StatusEmpty
		logger.Warn("collection has no items, no feed written", "file", outcome.File)
		return outcome, nil
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf, artifact.Channel, artifact.Items); err != nil {
		outcome.Status = StatusWriteFailed
		outcome.Err = err
		logger.Error("failed to render feed", "file", outcome.File, "err", err)
		return outcome, nil
	}

	if dryRun {
		outcome.Status = StatusRendered
		logger.Info("dry run, feed not written", "file", outcome.File, "items", outcome.Items, "bytes", buf.Len())
		return outcome, nil
	}
	if err := a.sink.Put(outcome.File, buf.Bytes()); err != nil {
		outcome.Status = StatusWriteFailed
		outcome.Err = err
		logger.Error("failed to write feed, previous artifact kept", "file", outcome.File, "err", err)
		return outcome, nil
	}

	outcome.Status = StatusWritten
	logger.Info("feed written", "file", outcome.File, "items", outcome.Items, "skipped", outcome.Skipped)
	return outcome, nil
}

// Collect fetches one collection for one mode without writing anything.
func (a *Aggregator) Collect(ctx context.Context, cfg *config.Config, spec models.CollectionSpec, mode models.DisplayMode) (*Artifact, error) {
	fetcher := paginate.New(a.source, cfg.PaginateOptions(), a.logger)
	return a.collect(ctx, cfg, fetcher, spec, mode, a.now())
}

// Render builds the feed bytes for one collection and mode.
func (a *Aggregator) Render(ctx context.Context, cfg *config.Config, spec models.CollectionSpec, mode models.DisplayMode) ([]byte, *Artifact, error) {
	artifact, err := a.Collect(ctx, cfg, spec, mode)
	if artifact == nil {
		return nil, nil, err
	}
	writer, werr := feedwriter.New(cfg.FeedFormat(), a.logger)
	if werr != nil {
		return nil, artifact, werr
	}
	data, werr := feedwriter.Render(writer, artifact.Channel, artifact.Items)
	if werr != nil {
		return nil, artifact, werr
	}
	return data, artifact, err
}

// collect returns a nil artifact on hard failure, and both an artifact and
// the fetch error on partial failure.
func (a *Aggregator) collect(ctx context.Context, cfg *config.Config, fetcher *paginate.Fetcher,
	spec models.CollectionSpec, mode models.DisplayMode, built time.Time) (*Artifact, error) {

	resolvers := normalize.DefaultResolvers(cfg.Link.Fallback)
	asm := assemble.New(mode, resolvers, a.logger.With("collection", spec.Name))

	res, err := fetcher.Fetch(ctx, spec.Key, asm)
	if res == nil {
		if err == nil {
			err = errors.New("fetch returned no result")
		}
		return nil, err
	}

	file := spec.FileName(mode)
	return &Artifact{
		Mode:       mode,
		Collection: spec,
		File:       file,
		Channel:    Channel(cfg, spec, file, built),
		Items:      res.Items,
		Result:     res,
	}, err
}

// Channel builds the feed metadata for spec.
func Channel(cfg *config.Config, spec models.CollectionSpec, file string, built time.Time) models.Channel {
	link := cfg.Site.Link
	if link == "" {
		link = cfg.Link.Fallback
	}
	description := spec.Description
	if description == "" {
		description = spec.Title
	}
	author := cfg.Site.Author
	if author == "" {
		author = spec.Label
	}
	generator := cfg.Site.Generator
	if generator == "" {
		generator = DefaultGenerator
	}
	return models.Channel{
		Title:       spec.Title,
		Link:        link,
		Description: description,
		Language:    cfg.Output.Language,
		Author:      author,
		BuildDate:   built,
		SelfURL:     cfg.PublicURL(file),
		Generator:   generator,
	}
}

func (a *Aggregator) writeIndex(cfg *config.Config, report *Report, file string) error {
	doc := opml.NewDocument(indexTitle(cfg))
	feedType := string(cfg.FeedFormat())
	for _, o := range report.Outcomes {
		if !o.Produced() {
			continue
		}
		xmlURL := cfg.PublicURL(o.File)
		if xmlURL == "" {
			xmlURL = o.File
		}
		doc.Add(string(o.Mode), opml.Feed{
			Title:   o.Collection.Title,
			Type:    feedType,
			XMLURL:  xmlURL,
			HTMLURL: cfg.Site.Link,
		})
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return err
	}
	if err := a.sink.Put(file, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to store index: %w", err)
	}
	return nil
}

func indexTitle(cfg *config.Config) string {
	if cfg.Site.Author != "" {
		return cfg.Site.Author + " feeds"
	}
	return "Publication feeds"
}
