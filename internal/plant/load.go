package plant

import "sort"

// LoadStep switches the load torque to Torque at Time.
type LoadStep struct {
	Time   float64 `yaml:"time" json:"time"`
	Torque float64 `yaml:"torque" json:"torque"`
}

// StepLoad returns a piecewise-constant load torque, zero before the first step.
func StepLoad(steps []LoadStep) LoadTorque {
	s := make([]LoadStep, len(steps))
	copy(s, steps)
	sort.Slice(s, func(i, j int) bool { return s[i].Time < s[j].Time })

	return func(t float64) float64 {
		tau := 0.0
		for _, st := range s {
			if t < st.Time {
				break
			}
			tau = st.Torque
		}
		return tau
	}
}
