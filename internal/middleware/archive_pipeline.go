package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
)

// ArchivePipeline sits between the collector and the candle archive. It
// validates candles and buffers writes while the archive is unreachable so
// ingestion never stalls on persistence. Reads pass straight through.
type ArchivePipeline struct {
	archive drepo.CandleArchive
	metrics drepo.Metrics

	bufSize int
	bufCh   chan bufferedCandle
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type bufferedCandle struct {
	symbol   string
	interval drepo.Interval
	candle   models.Candle
}

type PipelineOption func(*ArchivePipeline)

// WithBufferSize sets the buffer size used while the archive is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewArchivePipeline(archive drepo.CandleArchive, metrics drepo.Metrics, opts ...PipelineOption) *ArchivePipeline {
	p := &ArchivePipeline{
		archive: archive,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan bufferedCandle, p.bufSize)
	return p
}

// Start launches background flushing of buffered candles.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case bc := <-p.bufCh:
				if err := p.archive.Store(ctx, bc.symbol, bc.interval, &bc.candle); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("archive_flush")
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
						return
					}
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- bc:
					default:
						p.metrics.RecordError("archive_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ArchivePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and stores a candle, buffering on archive errors.
func (p *ArchivePipeline) Process(ctx context.Context, symbol string, iv drepo.Interval, c *models.Candle) error {
	if err := validateCandle(symbol, c); err != nil {
		p.metrics.RecordError("archive_validate")
		return err
	}

	if err := p.archive.Store(ctx, symbol, iv, c); err != nil {
		select {
		case p.bufCh <- bufferedCandle{symbol: symbol, interval: iv, candle: *c}:
		default:
			p.metrics.RecordError("archive_buffer_full")
		}
		return fmt.Errorf("archive store: %w", err)
	}
	return nil
}

// LatestN reads the most recent n candles from the archive.
func (p *ArchivePipeline) LatestN(ctx context.Context, symbol string, iv drepo.Interval, n int) ([]models.Candle, error) {
	return p.archive.LatestN(ctx, symbol, iv, n)
}

func validateCandle(symbol string, c *models.Candle) error {
	if c == nil {
		return fmt.Errorf("candle nil")
	}
	if symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if c.Open < 0 || c.High < 0 || c.Low < 0 || c.Close < 0 || c.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}
