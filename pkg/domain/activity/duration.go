package activity

import (
	"time"
)

// DurationKind names how an activity type's duration is determined.
type DurationKind string

const (
	// DurationUncontrollable durations are only known after simulation.
	DurationUncontrollable DurationKind = "uncontrollable"
	// DurationFixed durations are the same for every instance.
	DurationFixed DurationKind = "fixed"
	// DurationControllable durations are read from an argument.
	DurationControllable DurationKind = "controllable"
	// DurationParametric durations are computed from the arguments.
	DurationParametric DurationKind = "parametric"
)

// DurationRule computes an activity's duration from its arguments.
type DurationRule struct {
	Kind DurationKind
	// Fixed is used by DurationFixed.
	Fixed time.Duration
	// Parameter names the argument read by DurationControllable.
	Parameter string
	// Func is used by DurationParametric.
	Func func(args map[string]any) (time.Duration, error)
}

// Compute returns the duration for args, or false when it cannot be known.
func (r DurationRule) Compute(args map[string]any) (time.Duration, bool) {
	switch r.Kind {
	case DurationFixed:
		return r.Fixed, true
	case DurationControllable:
		v, ok := args[r.Parameter]
		if !ok {
			return 0, false
		}
		return durationValue(v)
	case DurationParametric:
		if r.Func == nil {
			return 0, false
		}
		d, err := r.Func(args)
		if err != nil {
			return 0, false
		}
		return d, true
	default:
		return 0, false
	}
}

// durationValue accepts Go duration strings ("90m") or a number of seconds.
func durationValue(v any) (time.Duration, bool) {
	switch x := v.(type) {
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return 0, false
		}
		return d, true
	case time.Duration:
		return x, true
	case int:
		return time.Duration(x) * time.Second, true
	case int64:
		return time.Duration(x) * time.Second, true
	case float64:
		return time.Duration(x * float64(time.Second)), true
	default:
		return 0, false
	}
}
