// Package gormstorage archives trails in a relational database through GORM.
// The sqlite and postgres backends wrap it with their own connection setup.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/OCAP2/trail/internal/database"
	"github.com/OCAP2/trail/internal/storage"
	"github.com/OCAP2/trail/pkg/scene"
)

// Trail is one archived trail curve.
type Trail struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"index:idx_trail_created_at;"`
	TokenID    string         `json:"tokenId" gorm:"size:128;index:idx_trail_token_id;"`
	TrailID    string         `json:"trailId" gorm:"size:128;"`
	SceneID    string         `json:"sceneId" gorm:"size:128;"`
	Color      string         `json:"color" gorm:"size:7;"`
	PointCount int            `json:"pointCount"`
	Length     float64        `json:"length"`
	Path       string         `json:"path" gorm:"type:text;"`
	Points     datatypes.JSON `json:"points"`
}

// TrailRemoval is one attempt to delete a previous trail.
type TrailRemoval struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RemovedAt time.Time `json:"removedAt"`
	TokenID   string    `json:"tokenId" gorm:"size:128;"`
	TrailID   string    `json:"trailId" gorm:"size:128;"`
	SceneID   string    `json:"sceneId" gorm:"size:128;"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error" gorm:"type:text;"`
}

// Models lists every table the backend owns.
var Models = []any{&Trail{}, &TrailRemoval{}}

// Backend implements storage.Backend over a *gorm.DB.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a backend on an open connection. Close releases it.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the schema.
func (b *Backend) Init() error {
	return database.Migrate(b.db, b.log, Models...)
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	return database.Close(b.db)
}

// TrailRow converts a record to its table row.
func TrailRow(r storage.TrailRecord) (Trail, error) {
	points, err := json.Marshal(r.Points)
	if err != nil {
		return Trail{}, fmt.Errorf("failed to encode points: %w", err)
	}
	return Trail{
		CreatedAt:  r.CreatedAt,
		TokenID:    r.TokenID,
		TrailID:    r.TrailID,
		SceneID:    r.SceneID,
		Color:      r.Color,
		PointCount: len(r.Points),
		Length:     r.Length,
		Path:       r.Path,
		Points:     datatypes.JSON(points),
	}, nil
}

// RemovalRow converts a record to its table row.
func RemovalRow(r storage.RemovalRecord) TrailRemoval {
	return TrailRemoval{
		RemovedAt: r.RemovedAt,
		TokenID:   r.TokenID,
		TrailID:   r.TrailID,
		SceneID:   r.SceneID,
		OK:        r.Error == "",
		Error:     r.Error,
	}
}

// RecordTrail inserts a trail row.
func (b *Backend) RecordTrail(r storage.TrailRecord) error {
	row, err := TrailRow(r)
	if err != nil {
		return err
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert trail: %w", err)
	}
	b.log.Debug().Str("token", r.TokenID).Str("trail", r.TrailID).Msg("Trail archived")
	return nil
}

// RecordRemoval inserts a removal row.
func (b *Backend) RecordRemoval(r storage.RemovalRecord) error {
	row := RemovalRow(r)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert trail removal: %w", err)
	}
	return nil
}

// RecentTrails returns up to limit trails, newest first.
func (b *Backend) RecentTrails(tokenID string, limit int) ([]storage.TrailRecord, error) {
	q := b.db.Model(&Trail{}).Order("created_at desc").Order("id desc")
	if tokenID != "" {
		q = q.Where("token_id = ?", tokenID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []Trail
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query trails: %w", err)
	}

	out := make([]storage.TrailRecord, 0, len(rows))
	for _, row := range rows {
		var points []scene.Vector2
		if len(row.Points) > 0 {
			if err := json.Unmarshal(row.Points, &points); err != nil {
				return nil, fmt.Errorf("failed to decode points of trail %d: %w", row.ID, err)
			}
		}
		out = append(out, storage.TrailRecord{
			TokenID:   row.TokenID,
			TrailID:   row.TrailID,
			SceneID:   row.SceneID,
			Color:     row.Color,
			Points:    points,
			Length:    row.Length,
			Path:      row.Path,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
