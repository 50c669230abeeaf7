// Package power computes the factory-wide supply ratio that scales miner and
// processor timers.
package power

// Unit is one placed building's contribution.
type Unit struct {
	Draw   float64
	Output float64
	// Active gates Output, for generators that need fuel.
	Active bool
}

type Report struct {
	Produced float64 `json:"produced"`
	Consumed float64 `json:"consumed"`
	Ratio    float64 `json:"ratio"`
}

// Compute sums base plus every active unit's output against every unit's
// draw. The ratio is 1 with no consumers, else produced/consumed clamped to
// [0,1].
func Compute(base float64, units []Unit) Report {
	r := Report{Produced: base}
	for _, u := range units {
		r.Consumed += u.Draw
		if u.Active {
			r.Produced += u.Output
		}
	}
	r.Ratio = Ratio(r.Produced, r.Consumed)
	return r
}

func Ratio(produced, consumed float64) float64 {
	if consumed <= 0 {
		return 1
	}
	x := produced / consumed
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
