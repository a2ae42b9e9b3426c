package metrics

import (
	"database/sql"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStatsCollector periodically exports connection statistics for the pgx
// pool and the sqlx handle backing the repositories.
type DBStatsCollector struct {
	pgxPool *pgxpool.Pool
	sqlxDB  *sql.DB
	stopCh  chan struct{}
}

// NewDBStatsCollector creates a new database stats collector
func NewDBStatsCollector(pgxPool *pgxpool.Pool, sqlxDB *sql.DB) *DBStatsCollector {
	return &DBStatsCollector{
		pgxPool: pgxPool,
		sqlxDB:  sqlxDB,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting database statistics at regular intervals
func (c *DBStatsCollector) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()

	log.Printf("Database stats collector started with interval: %v", interval)
}

// Stop stops the database stats collector
func (c *DBStatsCollector) Stop() {
	close(c.stopCh)
}

// collect gathers database statistics and updates Prometheus gauges
func (c *DBStatsCollector) collect() {
	if c.pgxPool != nil {
		stat := c.pgxPool.Stat()
		DBConnectionsOpen.WithLabelValues("pgx").Set(float64(stat.TotalConns()))
		DBConnectionsInUse.WithLabelValues("pgx").Set(float64(stat.AcquiredConns()))
		DBConnectionsIdle.WithLabelValues("pgx").Set(float64(stat.IdleConns()))
		DBConnectionsMaxOpen.WithLabelValues("pgx").Set(float64(stat.MaxConns()))
	}

	if c.sqlxDB != nil {
		stats := c.sqlxDB.Stats()
		DBConnectionsOpen.WithLabelValues("sqlx").Set(float64(stats.OpenConnections))
		DBConnectionsInUse.WithLabelValues("sqlx").Set(float64(stats.InUse))
		DBConnectionsIdle.WithLabelValues("sqlx").Set(float64(stats.Idle))
		DBConnectionsMaxOpen.WithLabelValues("sqlx").Set(float64(stats.MaxOpenConnections))
	}
}
