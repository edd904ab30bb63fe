package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/toozej/go-thoroughbred/internal/metrics"
	"github.com/toozej/go-thoroughbred/internal/services/browser"
	"github.com/toozej/go-thoroughbred/internal/services/scraper"
	"github.com/toozej/go-thoroughbred/internal/store"
	"github.com/toozej/go-thoroughbred/internal/types"
	"github.com/toozej/go-thoroughbred/pkg/config"
	"github.com/toozej/go-thoroughbred/pkg/logging"
)

// app holds the components every sub-command is built from.
type app struct {
	logger   *logging.Logger
	metrics  *metrics.Recorder
	sessions *browser.ChromeSessions
	scraper  *scraper.HorseScraper
	store    types.HorseStore
}

// newApp wires the scraper from configuration. The store is only opened
// when withStore is set so a plain fetch never needs a database.
func newApp(ctx context.Context, conf config.Config, withStore bool) (*app, error) {
	logger := logging.NewLogger(conf.Logging)
	recorder := metrics.NewRecorder()
	loc := conf.Source.LoadLocation()

	sessions := browser.NewChromeSessions(browser.Config{
		Headless:          conf.Browser.Headless,
		ExecPath:          conf.Browser.ExecPath,
		UserAgent:         conf.Browser.UserAgent,
		NavigationTimeout: conf.Browser.NavigationTimeout,
	}, logger.Logger)
	navigator := browser.NewNavigator(browser.NavigatorConfig{
		SettleDelay: conf.Browser.SettleDelay,
		ScrollDelay: conf.Browser.ScrollDelay,
		PedigreeTab: conf.Browser.PedigreeTab,
	}, logger.Logger)

	h := scraper.NewHorseScraper(
		scraper.ScraperConfig{
			BaseURL:      conf.Source.BaseURL,
			IDParam:      conf.Source.IDParam,
			IncludeParam: conf.Source.IncludeParam,
			Location:     loc,
		},
		sessions,
		navigator,
		scraper.NewGoqueryParser(logger.Logger),
		logger,
		scraper.WithMetrics(recorder),
	)

	a := &app{logger: logger, metrics: recorder, sessions: sessions, scraper: h}
	if withStore {
		s, err := store.New(ctx, conf.Store, loc, logger.Logger)
		if err != nil {
			_ = sessions.Shutdown()
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		a.store = store.Recorded(s, recorder)
	}
	return a, nil
}

// Close shuts the browser down and closes the store.
func (a *app) Close() error {
	errs := []error{a.sessions.Shutdown()}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
