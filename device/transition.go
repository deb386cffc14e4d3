package device

import (
	"math"
	"time"

	"github.com/k0rventen/avea/common"
	"github.com/k0rventen/avea/protocol"
)

// MaxFrameRate is the highest color update rate the bulb's GATT link
// sustains without dropping notifications
const MaxFrameRate = 5

// Frame is one set of color channel values in a transition
type Frame struct {
	Red   uint16
	Green uint16
	Blue  uint16
}

// Plan is an ordered sequence of color frames plus the interval to observe
// between them.  Plans are ephemeral, built and consumed within a single
// SetSmoothTransition call.
type Plan struct {
	Frames   []Frame
	Interval time.Duration
}

// PlanTransition computes the eased frame sequence from init to target.  The
// frame rate is capped at MaxFrameRate and floored at 1, and the last frame
// always lands exactly on target.
func PlanTransition(init, target Frame, duration time.Duration, fps int) Plan {
	if fps > MaxFrameRate {
		fps = MaxFrameRate
	}
	if fps < 1 {
		fps = 1
	}

	count := int(math.Round(duration.Seconds() * float64(fps)))
	if count < 1 {
		count = 1
	}

	plan := Plan{
		Frames:   make([]Frame, 0, count),
		Interval: time.Duration(float64(time.Second) / float64(fps)),
	}
	for n := 1; n <= count; n++ {
		// ease-in-ease-out, slow ends and a faster middle
		f := (1 - math.Cos(math.Pi*float64(n)/float64(count))) / 2
		plan.Frames = append(plan.Frames, Frame{
			Red:   interpolate(init.Red, target.Red, f),
			Green: interpolate(init.Green, target.Green, f),
			Blue:  interpolate(init.Blue, target.Blue, f),
		})
	}
	return plan
}

func interpolate(from, to uint16, fraction float64) uint16 {
	return uint16(math.Round(float64(from) + (float64(to)-float64(from))*fraction))
}

// SetSmoothTransition eases the bulb from its current color to the supplied
// 8-bit RGB target over duration, streaming frames at up to fps updates per
// second.  White is held at 0 throughout.
//
// The cached state is updated to the target whether or not every frame was
// delivered, recovery mid-transition is best-effort and the bulb may be left
// on an intermediate color when it fails.
func (b *Bulb) SetSmoothTransition(red, green, blue int, duration time.Duration, fps int) bool {
	b.RLock()
	init := Frame{Red: b.red, Green: b.green, Blue: b.blue}
	b.RUnlock()
	target := Frame{
		Red:   protocol.Clamp(red * rgbChannelScale),
		Green: protocol.Clamp(green * rgbChannelScale),
		Blue:  protocol.Clamp(blue * rgbChannelScale),
	}

	plan := PlanTransition(init, target, duration, fps)
	ok := b.withConnection(func() bool {
		return b.runPlan(plan)
	})

	b.setCachedColor(0, target.Red, target.Green, target.Blue)
	return ok
}

// runPlan streams the frames over the control characteristic.  Intermediate
// frames are written without acknowledgement, the terminal frame requires one
// so the bulb has committed the final color before the call returns.  A
// failed write triggers a single reconnect-and-resume attempt.  Callers hold
// opMu.
func (b *Bulb) runPlan(plan Plan) bool {
	reconnected := false
	for i := 0; i < len(plan.Frames); i++ {
		frame := plan.Frames[i]
		final := i == len(plan.Frames)-1
		payload := protocol.EncodeColor(0, frame.Red, frame.Green, frame.Blue)

		if err := b.write(payload, final); err != nil {
			common.Log.Warnf(`write failed on frame %d/%d of transition on %v: %v`, i+1, len(plan.Frames), b.address, err)
			if reconnected {
				common.Log.Warnf(`aborting transition on %v`, b.address)
				return false
			}
			reconnected = true
			b.disconnect()
			if !b.connect() {
				common.Log.Warnf(`could not reconnect to %v, aborting transition`, b.address)
				return false
			}
			i-- // resume from the current frame
			continue
		}
		if !final {
			time.Sleep(plan.Interval)
		}
	}
	return true
}
