package board

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/order"
)

// DefaultDragThreshold is how far the pointer must travel before a press
// becomes a drag; anything shorter is a plain click.
const DefaultDragThreshold = 5.0

// Point is a pointer location in board coordinates.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box in board coordinates.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) corners() [4]Point {
	return [4]Point{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X, r.Y + r.H},
		{r.X + r.W, r.Y + r.H},
	}
}

// cornerScore is the mean distance between matching corners of the two
// rects. Scoring corners instead of overlap keeps drops near a card edge
// between two columns unambiguous.
func cornerScore(a, b Rect) float64 {
	ca, cb := a.corners(), b.corners()
	var sum float64
	for i := range ca {
		sum += math.Hypot(ca[i].X-cb[i].X, ca[i].Y-cb[i].Y)
	}
	return sum / 4
}

// TargetKind says what a drop target is.
type TargetKind int

const (
	// TargetColumn is the column container itself; dropping on it appends.
	TargetColumn TargetKind = iota
	// TargetCard is a sibling card; dropping on it inserts before it.
	TargetCard
)

// DropTarget is one candidate drop location with its on-screen bounds.
type DropTarget struct {
	Kind   TargetKind
	Status domain.Status
	TaskID string
	Bounds Rect
}

type dragPhase int

const (
	phaseIdle dragPhase = iota
	phasePressed
	phaseDragging
)

// Drag interprets pick-up/track/drop gestures into board mutations. One
// instance serves the whole board; it is driven from the UI loop and is not
// safe for concurrent use.
type Drag struct {
	cache     *Cache
	log       *log.Logger
	threshold float64

	phase  dragPhase
	taskID string
	origin Point
	target *DropTarget
}

// NewDrag builds a controller over cache with the default press threshold.
func NewDrag(cache *Cache, logger *log.Logger) *Drag {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Drag{cache: cache, log: logger, threshold: DefaultDragThreshold}
}

// PickUp records a press on a card. The drag does not start until the
// pointer travels past the threshold.
func (d *Drag) PickUp(taskID string, at Point) error {
	if d.phase != phaseIdle {
		return fmt.Errorf("drag already active for %s", d.taskID)
	}
	if _, ok := d.cache.Task(taskID); !ok {
		return fmt.Errorf("unknown task %s", taskID)
	}
	d.phase = phasePressed
	d.taskID = taskID
	d.origin = at
	d.target = nil
	return nil
}

// Track updates the hover target from the current pointer position, the
// dragged card's bounds and the candidate targets. Collision is resolved by
// the lowest corner score.
func (d *Drag) Track(at Point, card Rect, targets []DropTarget) {
	switch d.phase {
	case phaseIdle:
		return
	case phasePressed:
		if math.Hypot(at.X-d.origin.X, at.Y-d.origin.Y) < d.threshold {
			return
		}
		d.phase = phaseDragging
	}
	d.target = nil
	best := math.Inf(1)
	for i := range targets {
		if targets[i].Kind == TargetCard && targets[i].TaskID == d.taskID {
			continue
		}
		if score := cornerScore(card, targets[i].Bounds); score < best {
			best = score
			d.target = &targets[i]
		}
	}
}

// Dragging reports whether the press has turned into a real drag.
func (d *Drag) Dragging() bool { return d.phase == phaseDragging }

// Target returns the current hover target, if any.
func (d *Drag) Target() *DropTarget { return d.target }

// Cancel aborts the gesture without any mutation.
func (d *Drag) Cancel() {
	d.phase = phaseIdle
	d.taskID = ""
	d.target = nil
}

// Drop releases the card over the current hover target. A release below the
// threshold, over no target, or back onto the card's own slot mutates
// nothing. The returned move, when non-nil, has already been applied to the
// cache and dispatched.
func (d *Drag) Drop(ctx context.Context) (*Move, error) {
	if d.phase != phaseDragging || d.target == nil {
		d.Cancel()
		return nil, nil
	}
	target := *d.target
	taskID := d.taskID
	d.Cancel()
	return d.dropOn(ctx, taskID, target)
}

// DropOn is the keyboard path: the gesture-to-target mapping happens in the
// caller, the resolution is identical to pointer drops.
func (d *Drag) DropOn(ctx context.Context, taskID string, target DropTarget) (*Move, error) {
	d.Cancel()
	return d.dropOn(ctx, taskID, target)
}

func (d *Drag) dropOn(ctx context.Context, taskID string, target DropTarget) (*Move, error) {
	move, err := d.resolve(taskID, target)
	if err != nil {
		return nil, err
	}
	if move == nil {
		return nil, nil
	}
	d.cache.Apply(ctx, *move)
	d.log.WithFields(log.Fields{
		"task":     move.ID,
		"status":   move.Status,
		"position": move.Position.String(),
	}).Debug("card dropped")
	return move, nil
}

// resolve turns a drop target into a concrete move, or into nothing when the
// card would land exactly where it already is.
func (d *Drag) resolve(taskID string, target DropTarget) (*Move, error) {
	dragged, ok := d.cache.Task(taskID)
	if !ok {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	if !target.Status.Valid() {
		return nil, fmt.Errorf("invalid target column %q", target.Status)
	}
	if target.Kind == TargetCard && target.TaskID == taskID {
		return nil, nil
	}

	col := excluding(d.cache.Column(target.Status), taskID)
	var prev, next order.Key
	if target.Kind == TargetCard {
		idx := indexOf(col, target.TaskID)
		if idx < 0 {
			// anchor vanished between hover and drop, append instead
			if len(col) > 0 {
				prev = col[len(col)-1].Position
			}
		} else {
			next = col[idx].Position
			if idx > 0 {
				prev = col[idx-1].Position
			}
		}
	} else if len(col) > 0 {
		prev = col[len(col)-1].Position
	}

	if target.Status == dragged.Status && between(dragged.Position, prev, next) {
		return nil, nil
	}
	pos, err := order.Between(prev, next)
	if err != nil {
		return nil, err
	}
	return &Move{ID: taskID, Status: target.Status, Position: pos}, nil
}

func excluding(tasks []domain.Task, id string) []domain.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func indexOf(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// between reports whether k already sits strictly inside (prev, next), zero
// bounds meaning open ends.
func between(k order.Key, prev, next order.Key) bool {
	if !prev.IsZero() && !prev.Less(k) {
		return false
	}
	if !next.IsZero() && !k.Less(next) {
		return false
	}
	return true
}
