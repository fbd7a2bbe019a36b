package storage

import (
	"log/slog"

	"github.com/OCAP2/trail/internal/geo"
	"github.com/OCAP2/trail/internal/session"
	"github.com/OCAP2/trail/internal/trail"
)

// Recorder feeds tracker outcomes into a Backend. It implements trail.Recorder.
// Failures are logged and never reach the tracker.
type Recorder struct {
	backend Backend
	session *session.Context
	logger  *slog.Logger
}

// NewRecorder creates a Recorder. sess may be nil.
func NewRecorder(backend Backend, sess *session.Context, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backend: backend, session: sess, logger: logger}
}

func (r *Recorder) sceneID() string {
	if r.session == nil {
		return ""
	}
	return r.session.SceneID()
}

// TrailCreated archives a created trail with its geometry.
func (r *Recorder) TrailCreated(c trail.Created) {
	rec := TrailRecord{
		TokenID:   c.TokenID,
		TrailID:   c.TrailID,
		SceneID:   r.sceneID(),
		Color:     c.Color,
		Points:    c.Points,
		Length:    geo.Length(c.Points),
		CreatedAt: c.At,
	}
	if wkt, err := geo.WKT(c.Points); err == nil {
		rec.Path = wkt
	}
	if err := r.backend.RecordTrail(rec); err != nil {
		r.logger.Warn("Failed to archive trail", "token", c.TokenID, "trail", c.TrailID, "error", err)
	}
}

// TrailRemoved archives a removal attempt.
func (r *Recorder) TrailRemoved(rm trail.Removed) {
	rec := RemovalRecord{
		TokenID:   rm.TokenID,
		TrailID:   rm.TrailID,
		SceneID:   r.sceneID(),
		RemovedAt: rm.At,
	}
	if rm.Err != nil {
		rec.Error = rm.Err.Error()
	}
	if err := r.backend.RecordRemoval(rec); err != nil {
		r.logger.Warn("Failed to archive trail removal", "token", rm.TokenID, "trail", rm.TrailID, "error", err)
	}
}
