// Package influxstorage writes trail activity to InfluxDB as time series.
// It is write-only: history queries are not supported.
package influxstorage

import (
	"context"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/OCAP2/trail/internal/influx"
	"github.com/OCAP2/trail/internal/storage"
)

// Measurement names.
const (
	MeasurementTrail   = "trail"
	MeasurementRemoval = "trail_removal"
)

const connectTimeout = 5 * time.Second

// Backend writes one point per trail and per removal.
type Backend struct {
	manager *influx.Manager
}

// New creates a backend for cfg. Init connects.
func New(cfg influx.Config, log zerolog.Logger) *Backend {
	return &Backend{manager: influx.NewManager(cfg, log)}
}

// Init connects to the server, or opens the backup file when it is down.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return b.manager.Connect(ctx)
}

// Close flushes pending points.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// RecordTrail writes a trail point.
func (b *Backend) RecordTrail(r storage.TrailRecord) error {
	p := influxdb2_write.NewPoint(
		MeasurementTrail,
		map[string]string{
			"token": r.TokenID,
			"scene": r.SceneID,
			"color": r.Color,
		},
		map[string]interface{}{
			"trail":  r.TrailID,
			"points": len(r.Points),
			"length": r.Length,
		},
		r.CreatedAt,
	)
	return b.manager.WritePoint(p)
}

// RecordRemoval writes a removal point.
func (b *Backend) RecordRemoval(r storage.RemovalRecord) error {
	p := influxdb2_write.NewPoint(
		MeasurementRemoval,
		map[string]string{
			"token": r.TokenID,
			"scene": r.SceneID,
		},
		map[string]interface{}{
			"trail": r.TrailID,
			"ok":    r.Error == "",
		},
		r.RemovedAt,
	)
	return b.manager.WritePoint(p)
}

// RecentTrails is not supported.
func (b *Backend) RecentTrails(string, int) ([]storage.TrailRecord, error) {
	return nil, storage.ErrNotSupported
}
