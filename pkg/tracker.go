package pkg

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Tracker turns the two remote feeds into page props.
type Tracker struct {
	feeds     FeedMetadata
	retriever FeedRetriever
	extractor Extractor
	logger    *zerolog.Logger
}

// NewTracker falls back to SnippetExtractor and a no-op logger when those
// are nil.
func NewTracker(feeds FeedMetadata, retriever FeedRetriever, extractor Extractor, logger *zerolog.Logger) *Tracker {
	if extractor == nil {
		extractor = SnippetExtractor{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tracker{
		feeds:     feeds,
		retriever: retriever,
		extractor: extractor,
		logger:    logger,
	}
}

// FetchCases returns the normalized country list of the latest day.
func (t *Tracker) FetchCases(ctx context.Context) ([]Datum, error) {
	latest, err := t.fetchLatest(ctx, t.feeds.CasesURL)
	if err != nil {
		return nil, err
	}
	countries, err := NormalizeCountries(latest)
	if err != nil {
		t.logger.Err(err).Str("url", t.feeds.CasesURL).Msg("Latest cases record has an unexpected shape")
		return nil, err
	}
	return countries, nil
}

// FetchTotal returns the latest global totals record.
func (t *Tracker) FetchTotal(ctx context.Context) (Datum, error) {
	return t.fetchLatest(ctx, t.feeds.TotalURL)
}

func (t *Tracker) fetchLatest(ctx context.Context, url string) (Datum, error) {
	raw, err := t.retriever.Fetch(ctx, url)
	if err != nil {
		t.logger.Err(err).Str("url", url).Msg("Failed to fetch feed")
		return nil, err
	}
	latest, err := SelectLatest(t.extractor.Extract(raw))
	if err != nil {
		t.logger.Err(err).Str("url", url).Int("bytes", len(raw)).Msg("Failed to parse feed")
		return nil, err
	}
	return latest, nil
}

// BuildPageProps fetches both feeds concurrently. A failing feed is replaced
// by its default (no countries, empty totals) so the returned props are
// always renderable; the failures are returned joined.
func (t *Tracker) BuildPageProps(ctx context.Context) (PageProps, error) {
	var (
		g                  errgroup.Group
		cases              []Datum
		total              Datum
		casesErr, totalErr error
	)
	// Each closure keeps its own error so one failing feed never cancels
	// the other fetch.
	g.Go(func() error {
		cases, casesErr = t.FetchCases(ctx)
		return nil
	})
	g.Go(func() error {
		total, totalErr = t.FetchTotal(ctx)
		return nil
	})
	g.Wait() // nolint: errcheck

	props := PageProps{Data: cases, TotalData: total}
	if casesErr != nil {
		casesErr = fmt.Errorf("cases feed: %w", casesErr)
		props.Data = []Datum{}
		t.logger.Warn().Msg("Rendering map without country data")
	}
	if totalErr != nil {
		totalErr = fmt.Errorf("totals feed: %w", totalErr)
		props.TotalData = Datum{}
		t.logger.Warn().Msg("Rendering panel without global totals")
	}
	t.logger.Info().Int("countries", len(props.Data)).Float64("confirmed", props.TotalData.Confirmed()).
		Msg("Prepared page props")
	return props, errors.Join(casesErr, totalErr)
}
