package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Collector periodically refreshes the host and pool gauges
type Collector struct {
	pool     *pgxpool.Pool // nil with the memory driver
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewCollector(pool *pgxpool.Pool, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Collector{
		pool:     pool,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the collection loop
func (c *Collector) Start() {
	log.Println("[MetricsCollector] Starting metrics collector...")
	c.collect()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				log.Println("[MetricsCollector] Stopping metrics collector...")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit
func (c *Collector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		CPUPercent.Set(pct[0])
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		MemoryPercent.Set(vm.UsedPercent)
		MemoryUsedBytes.Set(float64(vm.Used))
	}

	if c.pool != nil {
		stat := c.pool.Stat()
		ActiveConnections.Set(float64(stat.AcquiredConns()))
		IdleConnections.Set(float64(stat.IdleConns()))
		TotalConnections.Set(float64(stat.TotalConns()))
	}
}
