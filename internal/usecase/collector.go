package usecase

import (
	"context"
	"time"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
	mid "CoinPilot/internal/middleware"
	xlogger "CoinPilot/pkg/logger"
	xutil "CoinPilot/pkg/util"
)

// Collector drives ingestion: it maintains a rolling candle window per
// (symbol, interval), archives new candles and runs the decision pipeline
// once per fresh candle. Either a REST poller or a live stream feeds it;
// both funnel into ingest on the collector's own goroutine.
type Collector struct {
	feed     drepo.MarketFeed
	stream   drepo.MarketStream // nil in rest mode
	archive  *mid.ArchivePipeline
	pipeline *Pipeline
	metrics  drepo.Metrics
	logger   *xlogger.Logger

	symbols    []string
	intervals  []drepo.Interval
	windowSize int
	pollEvery  time.Duration

	// touched only by the ingest goroutine
	windows map[string][]models.Candle
}

func NewCollector(
	feed drepo.MarketFeed,
	stream drepo.MarketStream,
	archive *mid.ArchivePipeline,
	pipeline *Pipeline,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	symbols, intervals []string,
	windowSize int,
	pollEvery time.Duration,
) *Collector {
	ivs := make([]drepo.Interval, 0, len(intervals))
	for _, s := range intervals {
		ivs = append(ivs, drepo.NormalizeInterval(s))
	}
	return &Collector{
		feed:       feed,
		stream:     stream,
		archive:    archive,
		pipeline:   pipeline,
		metrics:    metrics,
		logger:     logger,
		symbols:    symbols,
		intervals:  ivs,
		windowSize: windowSize,
		pollEvery:  pollEvery,
		windows:    make(map[string][]models.Candle),
	}
}

// Start warms the windows from the archive and launches the ingest loop.
// Shutdown is bounded by ctx; waits are cancellable, never bare sleeps.
func (c *Collector) Start(ctx context.Context) error {
	c.warmStart(ctx)

	if c.stream != nil {
		if err := c.stream.Connect(ctx); err != nil {
			return err
		}
		if err := c.stream.Subscribe(ctx); err != nil {
			return err
		}
		go c.consumeStream(ctx)
		return nil
	}

	go c.poll(ctx)
	return nil
}

// Stop closes the stream if one is active.
func (c *Collector) Stop() error {
	if c.stream != nil {
		return c.stream.Close()
	}
	return nil
}

// warmStart preloads rolling windows from the archive so indicators have
// lookback immediately after a restart. Best effort; an empty archive just
// means the window fills from live data.
func (c *Collector) warmStart(ctx context.Context) {
	if c.archive == nil {
		return
	}
	for _, sym := range c.symbols {
		for _, iv := range c.intervals {
			candles, err := c.archive.LatestN(ctx, sym, iv, c.windowSize)
			if err != nil || len(candles) == 0 {
				continue
			}
			c.windows[windowKey(sym, iv)] = candles
			c.logger.Info("window warm-started",
				xlogger.String("symbol", sym),
				xlogger.String("interval", string(iv)),
				xlogger.Int("candles", len(candles)),
			)
		}
	}
}

func (c *Collector) poll(ctx context.Context) {
	// first pass immediately, then on the ticker
	c.pollOnce(ctx)

	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Collector) pollOnce(ctx context.Context) {
	for _, sym := range c.symbols {
		for _, iv := range c.intervals {
			candle, err := c.feed.FetchLatest(ctx, sym, iv)
			if err != nil {
				c.metrics.RecordError("feed")
				c.logger.Warn("candle fetch failed",
					xlogger.String("symbol", sym),
					xlogger.String("interval", string(iv)),
					xlogger.Error(err),
				)
				continue
			}
			if candle != nil {
				c.ingest(ctx, sym, iv, candle)
			}
		}
	}
}

func (c *Collector) consumeStream(ctx context.Context) {
	evCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.logger.Warn("stream reconnect failed", xlogger.Error(rerr))
				}
				evCh, errCh = c.stream.Read(ctx)
			}
		case ev := <-evCh:
			if ev == nil {
				continue
			}
			iv := drepo.NormalizeInterval(ev.Interval)
			c.ingest(ctx, ev.Symbol, iv, &ev.Candle)
		}
	}
}

// ingest archives the candle, advances the rolling window and runs one
// pipeline cycle on the updated series.
func (c *Collector) ingest(ctx context.Context, symbol string, iv drepo.Interval, candle *models.Candle) {
	candle.Timestamp = xutil.BucketStart(candle.Timestamp, string(iv))

	if c.archive != nil {
		if err := c.archive.Process(ctx, symbol, iv, candle); err != nil {
			c.metrics.RecordError("archive")
		}
	}

	key := windowKey(symbol, iv)
	window := c.windows[key]
	if n := len(window); n > 0 && window[n-1].Timestamp.Equal(candle.Timestamp) {
		// same bucket refreshed; replace instead of append
		window[n-1] = *candle
	} else {
		window = append(window, *candle)
	}
	if len(window) > c.windowSize {
		window = window[len(window)-c.windowSize:]
	}
	c.windows[key] = window

	c.metrics.RecordLastPrice(symbol, candle.Close)

	// hand the pipeline its own copy; the window keeps mutating here
	series := make([]models.Candle, len(window))
	copy(series, window)
	c.pipeline.RunCycle(ctx, symbol, string(iv), series)
}

func windowKey(symbol string, iv drepo.Interval) string {
	return symbol + "|" + string(iv)
}
