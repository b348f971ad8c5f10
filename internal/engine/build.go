package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"skinwatch/internal/aggregate"
	"skinwatch/internal/config"
	"skinwatch/internal/fxrate"
	"skinwatch/internal/history"
	"skinwatch/internal/httpx"
	"skinwatch/internal/imagecatalog"
	"skinwatch/internal/provider/bitskins"
	"skinwatch/internal/provider/cache"
	"skinwatch/internal/provider/csfloat"
	"skinwatch/internal/provider/ratelimit"
	"skinwatch/internal/provider/steam"
	"skinwatch/internal/totp"
)

// Runtime owns the engine and its background refreshers.
type Runtime struct {
	Engine  *Engine
	FX      *fxrate.Cache
	Catalog *imagecatalog.Store

	cfg     config.Config
	log     *slog.Logger
	closers []func() error
	wg      sync.WaitGroup
}

// Build wires every component from cfg. The config must already be valid.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Runtime, error) {
	rt := &Runtime{cfg: cfg, log: log}
	hc := httpx.New(config.Seconds(cfg.Server.RequestTimeoutSec, 10*time.Second))

	codes, err := totp.New(cfg.Bitskins.Secret, totp.WithStep(config.Seconds(cfg.Bitskins.TimeStepSec, totp.DefaultStep)))
	if err != nil {
		return nil, fmt.Errorf("bitskins secret: %w", err)
	}
	bs, err := bitskins.NewClient(cfg.Bitskins.APIKey,
		bitskins.WithBaseURL(cfg.Bitskins.Endpoint),
		bitskins.WithHTTPClient(hc),
		bitskins.WithAppID(cfg.Bitskins.AppID),
	)
	if err != nil {
		return nil, fmt.Errorf("bitskins client: %w", err)
	}

	rt.FX = fxrate.New(fxrate.NewQuoteSource(cfg.FX.Endpoint, hc), cfg.FX.Rate(), fxrate.WithLogger(log.With("component", "fxrate")))

	loaders := imagecatalog.Chain{imagecatalog.HTTPLoader{URL: cfg.Catalog.Endpoint, Client: hc}}
	if cfg.Catalog.File != "" {
		loaders = append(loaders, imagecatalog.FileLoader{Path: cfg.Catalog.File})
	}
	rt.Catalog = imagecatalog.NewStore(loaders, log.With("component", "imagecatalog"))
	if cfg.Catalog.File != "" {
		if c, err := (imagecatalog.FileLoader{Path: cfg.Catalog.File}).Load(ctx); err != nil {
			log.Warn("image catalog warm start failed", "file", cfg.Catalog.File, "err", err)
		} else {
			rt.Catalog.Replace(c)
		}
	}

	agg := &aggregate.Aggregator{
		Primary:        bs,
		Codes:          codes,
		Images:         rt.Catalog,
		Limit:          cfg.Bitskins.SearchLimit,
		MaxConcurrency: cfg.CSFloat.MaxConcurrency,
		LookupTimeout:  config.Seconds(cfg.CSFloat.LookupTimeoutSec, aggregate.DefaultLookupTimeout),
		Log:            log.With("component", "aggregate"),
	}
	res := &history.Resolver{
		Bitskins:  bs,
		Codes:     codes,
		Rates:     rt.FX,
		Shifts:    cfg.Bitskins.RetryShifts,
		Limit:     cfg.Bitskins.HistoryLimit,
		MaxPoints: cfg.Steam.MaxPoints,
		Log:       log.With("component", "history"),
	}

	if cfg.CSFloat.APIKey != "" {
		cf, err := csfloat.NewClient(cfg.CSFloat.APIKey,
			csfloat.WithBaseURL(cfg.CSFloat.Endpoint),
			csfloat.WithHTTPClient(hc),
			csfloat.WithLimiter(ratelimit.New(cfg.CSFloat.MaxRequestsPerMinute, cfg.CSFloat.Burst, 0)),
		)
		if err != nil {
			return nil, fmt.Errorf("csfloat client: %w", err)
		}
		agg.Secondary = cf
		res.CSFloat = cf
	} else {
		log.Info("csfloat api key not set, search results carry bitskins prices only")
	}

	st, err := steam.NewClient(cfg.Steam.LoginSecure,
		steam.WithBaseURL(cfg.Steam.Endpoint),
		steam.WithHTTPClient(hc),
		steam.WithWallet(cfg.Steam.Currency, cfg.Steam.Country),
		steam.WithLimiter(ratelimit.New(0, 0, config.Seconds(cfg.Steam.MinRequestIntervalSec, 0))),
	)
	if err != nil {
		return nil, fmt.Errorf("steam client: %w", err)
	}
	if !st.HasSession() {
		log.Info("steam session not set, steam history disabled")
	}
	store, err := rt.cacheStore(ctx)
	if err != nil {
		return nil, err
	}
	res.Steam = cachedSteam{&cache.Provider[steam.Series]{
		Fetch:  st.PriceHistory,
		Store:  store,
		TTL:    config.Seconds(cfg.Steam.CacheTTLSeconds, 0),
		Prefix: cfg.Cache.Prefix + "steam:",
		Log:    log.With("component", "cache"),
	}}

	rt.Engine = &Engine{
		Searcher: agg,
		History:  res,
		Details:  bs,
		Codes:    codes,
		Rates:    rt.FX,
		Shifts:   cfg.Bitskins.RetryShifts,
		Log:      log.With("component", "engine"),
	}
	return rt, nil
}

func (rt *Runtime) cacheStore(ctx context.Context) (cache.Store, error) {
	if rt.cfg.Steam.CacheTTLSeconds <= 0 {
		return nil, nil
	}
	if addr := rt.cfg.Cache.RedisAddr; addr != "" {
		rs, err := cache.NewRedisStore(ctx, addr, rt.cfg.Cache.RedisPassword, rt.cfg.Cache.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		rt.closers = append(rt.closers, rs.Close)
		return rs, nil
	}
	return &cache.MemoryStore{MaxItems: rt.cfg.Steam.CacheMaxItems}, nil
}

// Start launches the exchange rate and image catalog refreshers. They stop
// when ctx ends.
func (rt *Runtime) Start(ctx context.Context) {
	rt.wg.Add(2)
	go func() {
		defer rt.wg.Done()
		rt.FX.Run(ctx, config.Seconds(rt.cfg.FX.RefreshIntervalSec, time.Hour))
	}()
	go func() {
		defer rt.wg.Done()
		rt.Catalog.Run(ctx, config.Seconds(rt.cfg.Catalog.RefreshIntervalSec, 24*time.Hour))
	}()
}

// Close waits for the refreshers and releases shared stores.
func (rt *Runtime) Close() error {
	rt.wg.Wait()
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// cachedSteam serves steam history through the cache.
type cachedSteam struct {
	c *cache.Provider[steam.Series]
}

func (s cachedSteam) PriceHistory(ctx context.Context, name string) (steam.Series, error) {
	return s.c.Get(ctx, name)
}
