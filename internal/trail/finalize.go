package trail

import (
	"time"

	"github.com/OCAP2/trail/pkg/scene"
)

// MetaTrailOf is the metadata field naming the token a curve belongs to.
// It is stored under the extension ID.
const MetaTrailOf = "trailOf"

func (t *Tracker) buildCurve(id scene.ItemID, points []scene.Vector2, color string) scene.Item {
	return scene.BuildCurve().
		Layer(t.cfg.CurveLayer).
		Points(points).
		StrokeColor(color).
		StrokeWidth(t.cfg.StrokeWidth).
		StrokeOpacity(t.cfg.StrokeOpacity).
		Metadata(t.cfg.ExtensionID, map[string]any{MetaTrailOf: id}).
		Build()
}

// finalize converts a finished buffer into a curve. The buffer has already
// been detached from the token, so nothing here can leave one behind.
func (t *Tracker) finalize(id scene.ItemID, gen uint64, points []scene.Vector2) {
	if len(points) < 2 {
		t.metrics.inc(t.metrics.discarded)
		t.deps.Logger.Debug("Gesture too short for a trail", "token", id, "points", len(points))
		return
	}

	color := t.deps.Prefs.Color()
	curve := t.buildCurve(id, points, color)

	t.deps.Runner.Submit(func() {
		created, err := t.deps.Host.AddItems(t.ctx, []scene.Item{curve})
		if err != nil {
			t.metrics.failure("add")
			t.deps.Logger.Error("Failed to add trail", "token", id, "error", err)
			return
		}
		if len(created) == 0 || created[0].ID == "" {
			t.metrics.failure("add")
			t.deps.Logger.Error("Host returned no trail id", "token", id)
			return
		}
		t.applyCreated(id, gen, created[0].ID, curve)
	})
}

// applyCreated records trailID as the token's trail unless a newer gesture
// has started since the creation was issued. A superseded curve is removed.
func (t *Tracker) applyCreated(id scene.ItemID, gen uint64, trailID scene.ItemID, curve scene.Item) {
	t.mu.Lock()
	st, ok := t.tokens[id]
	current := ok && !t.closed && st.gen == gen
	if current {
		st.trailID = trailID
	}
	t.mu.Unlock()

	if t.deps.Recorder != nil {
		t.deps.Recorder.TrailCreated(Created{
			TokenID: id,
			TrailID: trailID,
			Color:   curve.Style.StrokeColor,
			Points:  curve.Points,
			At:      time.Now(),
		})
	}

	if current {
		t.metrics.trailCreated()
		t.deps.Logger.Debug("Trail created", "token", id, "trail", trailID, "points", len(curve.Points))
		return
	}

	t.metrics.resultStale()
	t.deps.Logger.Info("Trail superseded before creation completed", "token", id, "trail", trailID)
	t.deleteTrail(id, trailID)
}

// removeTrail deletes a token's previous trail at the start of a new gesture.
// The reference has already been cleared by the caller.
func (t *Tracker) removeTrail(id, trailID scene.ItemID) {
	t.deps.Runner.Submit(func() {
		t.deleteTrail(id, trailID)
	})
}

// deleteTrail runs on the Runner. Failures leave the curve in the scene.
func (t *Tracker) deleteTrail(id, trailID scene.ItemID) {
	err := t.deps.Host.DeleteItems(t.ctx, []string{trailID})
	if err != nil {
		t.metrics.failure("delete")
		t.deps.Logger.Warn("Failed to remove previous trail", "token", id, "trail", trailID, "error", err)
	}
	if t.deps.Recorder != nil {
		t.deps.Recorder.TrailRemoved(Removed{TokenID: id, TrailID: trailID, Err: err, At: time.Now()})
	}
}
