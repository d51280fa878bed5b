package gcode

import (
	"math"
	"time"

	"github.com/gcode-analyzer/backend/internal/models"
)

const (
	// DefaultFeedRate (units/min) applies to cutting moves until an F
	// parameter is seen.
	DefaultFeedRate = 1000.0
	// RapidFeedRate (units/min) applies to every G0 regardless of F.
	RapidFeedRate = 5000.0

	// minArcRadius is the radius below which an arc is degenerate.
	minArcRadius = 0.001
)

// Rates parameterizes the time estimator. Zero fields fall back to the
// package defaults.
type Rates struct {
	DefaultFeed float64 `json:"defaultFeed" yaml:"default_feed"`
	Rapid       float64 `json:"rapid" yaml:"rapid"`
}

func (r Rates) withDefaults() Rates {
	if r.DefaultFeed <= 0 {
		r.DefaultFeed = DefaultFeedRate
	}
	if r.Rapid <= 0 {
		r.Rapid = RapidFeedRate
	}
	return r
}

// segmentLength is the distance traveled by cmd starting from start.
func segmentLength(start point, cmd models.Command) float64 {
	if cmd.Type == models.CommandTypeArcCW || cmd.Type == models.CommandTypeArcCCW {
		return arcLength(start, cmd)
	}
	return linearLength(start, cmd)
}

func linearLength(start point, cmd models.Command) float64 {
	dx := cmd.EndX - start.X
	dy := cmd.EndY - start.Y
	dz := cmd.EndZ - start.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// arcLength computes the swept length of a G2/G3 command, including the
// helical Z component. An arc with neither I nor J is treated as a straight
// move; K alone does not define a center in the XY plane, so a K-only arc
// also falls back to linear.
func arcLength(start point, cmd models.Command) float64 {
	if cmd.I == nil && cmd.J == nil {
		return linearLength(start, cmd)
	}

	var i, j float64
	if cmd.I != nil {
		i = *cmd.I
	}
	if cmd.J != nil {
		j = *cmd.J
	}

	cx := start.X + i
	cy := start.Y + j
	radius := math.Hypot(i, j)
	if radius < minArcRadius {
		return 0
	}

	startAngle := math.Atan2(start.Y-cy, start.X-cx)
	endAngle := math.Atan2(cmd.EndY-cy, cmd.EndX-cx)
	diff := endAngle - startAngle

	// Force the swept angle's sign to match the nominal direction.
	if cmd.Type == models.CommandTypeArcCW && diff > 0 {
		diff -= 2 * math.Pi
	}
	if cmd.Type == models.CommandTypeArcCCW && diff < 0 {
		diff += 2 * math.Pi
	}

	arc2d := math.Abs(diff) * radius
	return math.Hypot(arc2d, cmd.EndZ-start.Z)
}

// EstimatedRunTime estimates machining time with the package default rates.
func (r *Result) EstimatedRunTime() time.Duration {
	return r.EstimateRunTime(Rates{})
}

// EstimateRunTime walks the command list tracking the modal feed rate. The
// feed updates before each segment's contribution; the first command has no
// predecessor segment and contributes no time. A non-positive effective rate
// contributes nothing.
func (r *Result) EstimateRunTime(rates Rates) time.Duration {
	rates = rates.withDefaults()
	feed := rates.DefaultFeed

	var minutes float64
	var prev point
	for i, cmd := range r.Commands {
		if cmd.F != nil && *cmd.F > 0 {
			feed = *cmd.F
		}
		if i == 0 {
			prev = point{cmd.EndX, cmd.EndY, cmd.EndZ}
			continue
		}
		rate := feed
		if cmd.Type == models.CommandTypeRapid {
			rate = rates.Rapid
		}
		if rate > 0 {
			minutes += segmentLength(prev, cmd) / rate
		}
		prev = point{cmd.EndX, cmd.EndY, cmd.EndZ}
	}

	return time.Duration(minutes * float64(time.Minute))
}

// distanceWhere sums segment lengths for commands matching the predicate,
// skipping the first command (no predecessor segment).
func (r *Result) distanceWhere(match func(models.CommandType) bool) float64 {
	var sum float64
	var prev point
	for i, cmd := range r.Commands {
		if i > 0 && match(cmd.Type) {
			sum += segmentLength(prev, cmd)
		}
		prev = point{cmd.EndX, cmd.EndY, cmd.EndZ}
	}
	return sum
}

// TotalDistance is the sum of all segment lengths.
func (r *Result) TotalDistance() float64 {
	return r.distanceWhere(func(models.CommandType) bool { return true })
}

// CuttingDistance sums G1/G2/G3 segment lengths.
func (r *Result) CuttingDistance() float64 {
	return r.distanceWhere(models.CommandType.IsCutting)
}

// RapidDistance sums G0 segment lengths.
func (r *Result) RapidDistance() float64 {
	return r.distanceWhere(func(t models.CommandType) bool {
		return t == models.CommandTypeRapid
	})
}
