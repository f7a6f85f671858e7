package sense

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// #region collector

// Collector polls all registered sources concurrently and builds one packet
// per cycle. A source that errors or times out is skipped for the cycle; its
// sensors are absent from the packet, which downstream stages treat as a
// valid, expected outcome.
type Collector struct {
	sources []Source
	builder *Builder
	timeout time.Duration
}

// NewCollector creates a Collector. timeout bounds each source's Sense call.
func NewCollector(builder *Builder, timeout time.Duration, sources ...Source) *Collector {
	return &Collector{
		sources: sources,
		builder: builder,
		timeout: timeout,
	}
}

// Collect gathers readings from every source concurrently and assembles a
// ContextPacket stamped with the current time.
func (c *Collector) Collect(ctx context.Context) ContextPacket {
	results := make([][]RawReading, len(c.sources))

	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			senseCtx := ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				senseCtx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
			raws, err := src.Sense(senseCtx)
			if err != nil {
				log.Printf("[SENSE] source %s skipped: %v", src.ID(), err)
				return nil
			}
			results[i] = raws
			return nil
		})
	}
	g.Wait()

	var all []RawReading
	for _, raws := range results {
		all = append(all, raws...)
	}
	return c.builder.Build(time.Now().UTC(), all)
}

// #endregion collector
