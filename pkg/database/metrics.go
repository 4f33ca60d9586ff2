package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// PgxStater is implemented by *pgxpool.Pool.
type PgxStater interface {
	Stat() *pgxpool.Stat
}

// RedisStater is implemented by *redis.Client.
type RedisStater interface {
	PoolStats() *redis.PoolStats
}

// PoolStatsCollector exports connection pool gauges and counters for
// whichever storage backend is active.
type PoolStatsCollector struct {
	service string
	pg      PgxStater
	rdb     RedisStater

	totalConns   *prometheus.Desc
	idleConns    *prometheus.Desc
	acquireCount *prometheus.Desc
	waitCount    *prometheus.Desc
	timeouts     *prometheus.Desc
}

func newPoolStatsCollector(service, backend string) *PoolStatsCollector {
	labels := []string{"service"}
	constLabels := prometheus.Labels{"backend": backend}
	return &PoolStatsCollector{
		service: service,
		totalConns: prometheus.NewDesc("db_pool_total_connections",
			"Total number of connections in the pool", labels, constLabels),
		idleConns: prometheus.NewDesc("db_pool_idle_connections",
			"Number of currently idle connections", labels, constLabels),
		acquireCount: prometheus.NewDesc("db_pool_acquire_count_total",
			"Total number of connection acquires (pool hits for redis)", labels, constLabels),
		waitCount: prometheus.NewDesc("db_pool_empty_acquire_count_total",
			"Total number of acquires that found no idle connection", labels, constLabels),
		timeouts: prometheus.NewDesc("db_pool_timeouts_total",
			"Total number of acquires that timed out or were canceled", labels, constLabels),
	}
}

// NewPgxPoolCollector collects statistics from a pgx pool.
func NewPgxPoolCollector(pool PgxStater, service string) *PoolStatsCollector {
	c := newPoolStatsCollector(service, SystemPostgres)
	c.pg = pool
	return c
}

// NewRedisPoolCollector collects statistics from a go-redis client.
func NewRedisPoolCollector(client RedisStater, service string) *PoolStatsCollector {
	c := newPoolStatsCollector(service, SystemRedis)
	c.rdb = client
	return c
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.acquireCount
	ch <- c.waitCount
	ch <- c.timeouts
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	var total, idle, acquires, waits, timeouts float64

	switch {
	case c.pg != nil:
		s := c.pg.Stat()
		total = float64(s.TotalConns())
		idle = float64(s.IdleConns())
		acquires = float64(s.AcquireCount())
		waits = float64(s.EmptyAcquireCount())
		timeouts = float64(s.CanceledAcquireCount())
	case c.rdb != nil:
		s := c.rdb.PoolStats()
		total = float64(s.TotalConns)
		idle = float64(s.IdleConns)
		acquires = float64(s.Hits)
		waits = float64(s.Misses)
		timeouts = float64(s.Timeouts)
	default:
		return
	}

	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, total, c.service)
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, idle, c.service)
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, acquires, c.service)
	ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, waits, c.service)
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, timeouts, c.service)
}

// RegisterPoolMetrics registers c with reg, tolerating a previous
// registration of an equal collector.
func RegisterPoolMetrics(reg prometheus.Registerer, c *PoolStatsCollector) error {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}
