package control

import "sort"

// Step is one segment of a speed profile. The speed holds from Time until
// the next step.
type Step struct {
	Time  float64 `yaml:"time" json:"time"`
	Speed float64 `yaml:"speed" json:"speed"`
}

// StepProfile is a piecewise-constant reference. Before the first step the
// reference is zero.
type StepProfile struct {
	steps []Step
}

func NewStepProfile(steps []Step) *StepProfile {
	s := make([]Step, len(steps))
	copy(s, steps)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time < s[j].Time })
	return &StepProfile{steps: s}
}

// At returns the reference at time t.
func (p *StepProfile) At(t float64) float64 {
	v := 0.0
	for _, s := range p.steps {
		if t < s.Time {
			break
		}
		v = s.Speed
	}
	return v
}
