package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	writeResultSuccess = "success"
	writeResultError   = "error"
)

// Orchestrator runs the fetch phase and then the write phase over a set of entries.
type Orchestrator struct {
	fetcher   Fetcher
	resolver  TokenResolver
	translate Translator
	writer    Writer
	hasher    Hasher
	recorder  Recorder
	reporter  Reporter
	logger    *zap.Logger
}

// New constructs an Orchestrator. The translator, hasher, recorder, reporter
// and logger are optional.
func New(
	fetcher Fetcher,
	resolver TokenResolver,
	translate Translator,
	writer Writer,
	hasher Hasher,
	recorder Recorder,
	reporter Reporter,
	logger *zap.Logger,
) *Orchestrator {
	if translate == nil {
		translate = func(source string) string { return source }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		resolver:  resolver,
		translate: translate,
		writer:    writer,
		hasher:    hasher,
		recorder:  recorder,
		reporter:  reporter,
		logger:    logger,
	}
}

// Run fetches every entry and, only if all fetches succeed, writes every result.
// An empty list is a successful no-op.
func (o *Orchestrator) Run(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		o.logger.Info("empty config, nothing to do")
		return nil
	}
	if o.reporter != nil {
		if err := o.reporter.Report(entries); err != nil {
			return fmt.Errorf("report config: %w", err)
		}
	}
	results, err := o.FetchAll(ctx, entries)
	if err != nil {
		return err
	}
	return o.WriteAll(ctx, results)
}

// FetchAll fetches all entries concurrently. A failing fetch does not cancel
// its siblings; once all have settled the first error is returned and no
// results are.
func (o *Orchestrator) FetchAll(ctx context.Context, entries []Entry) ([]Result, error) {
	results := make([]Result, len(entries))
	var g errgroup.Group
	for i, entry := range entries {
		g.Go(func() error {
			res, err := o.fetchOne(ctx, entry)
			if err != nil {
				o.logger.Error("fetch failed",
					zap.String("source", entry.Source),
					zap.String("state", string(StateFailed)),
					zap.Error(err))
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) fetchOne(ctx context.Context, entry Entry) (Result, error) {
	translated := o.translate(entry.Source)
	logger := o.logger.With(zap.String("source", entry.Source), zap.String("url", translated))
	logger.Debug("source translated", zap.String("state", string(StateTranslated)))

	tok, err := o.resolver.Resolve(entry.Source)
	if err != nil {
		return Result{}, fmt.Errorf("resolve token for %s: %w", entry.Source, err)
	}
	headers := http.Header{}
	if tok.Present {
		headers.Set("Authorization", "token "+tok.Value)
	}

	logger.Debug("fetching", zap.String("state", string(StateFetching)))
	resp, err := o.fetcher.Fetch(ctx, Request{URL: translated, Headers: headers})
	if err != nil {
		o.observeFetch(translated, 0, 0, resp.Duration)
		return Result{}, &FetchError{Source: entry.Source, TranslatedURL: translated, Err: err}
	}
	o.observeFetch(translated, resp.StatusCode, len(resp.Body), resp.Duration)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &FetchError{
			Source:        entry.Source,
			TranslatedURL: translated,
			StatusCode:    resp.StatusCode,
			StatusText:    resp.Status,
		}
	}

	res := Result{
		Source:        entry.Source,
		TranslatedURL: translated,
		LocalFilePath: entry.LocalFilePath,
		Contents:      resp.Body,
		Duration:      resp.Duration,
	}
	digest, err := o.digest(entry, resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("hash %s: %w", entry.Source, err)
	}
	res.Digest = digest
	logger.Info("fetched",
		zap.String("state", string(StateFetched)),
		zap.Int("bytes", len(resp.Body)),
		zap.String("sha256", res.Digest),
		zap.Duration("duration", resp.Duration))
	return res, nil
}

func (o *Orchestrator) digest(entry Entry, body []byte) (string, error) {
	switch {
	case o.hasher == nil && entry.SHA256 != "":
		return "", errors.New("sha256 is pinned but no hasher is configured")
	case o.hasher == nil:
		return "", nil
	case entry.SHA256 != "":
		return o.hasher.Verify(body, entry.SHA256)
	default:
		return o.hasher.Hash(body)
	}
}

func (o *Orchestrator) observeFetch(site string, code int, n int, d time.Duration) {
	if o.recorder == nil {
		return
	}
	o.recorder.ObserveFetch(site, code, n, d)
}

// WriteAll writes every result concurrently. Files already written by
// siblings are left in place when one write fails.
func (o *Orchestrator) WriteAll(ctx context.Context, results []Result) error {
	var g errgroup.Group
	for _, res := range results {
		g.Go(func() error {
			logger := o.logger.With(zap.String("path", res.LocalFilePath))
			logger.Debug("writing", zap.String("state", string(StateWriting)))
			uri, err := o.writer.Write(ctx, res.LocalFilePath, res.Contents)
			if err != nil {
				o.observeWrite(writeResultError)
				logger.Error("write failed", zap.String("state", string(StateFailed)), zap.Error(err))
				return fmt.Errorf("write %s: %w", res.LocalFilePath, err)
			}
			o.observeWrite(writeResultSuccess)
			logger.Info("wrote file",
				zap.String("state", string(StateWritten)),
				zap.String("uri", uri),
				zap.Int("bytes", len(res.Contents)))
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) observeWrite(result string) {
	if o.recorder == nil {
		return
	}
	o.recorder.ObserveWrite(result)
}

// Plan translates every entry and resolves its token without any network or
// filesystem I/O.
func (o *Orchestrator) Plan(entries []Entry) ([]Planned, error) {
	planned := make([]Planned, 0, len(entries))
	for _, entry := range entries {
		tok, err := o.resolver.Resolve(entry.Source)
		if err != nil {
			return nil, fmt.Errorf("resolve token for %s: %w", entry.Source, err)
		}
		planned = append(planned, Planned{
			Entry:         entry,
			TranslatedURL: o.translate(entry.Source),
			TokenVar:      tok.VarName,
			TokenSet:      tok.Present,
		})
	}
	return planned, nil
}
