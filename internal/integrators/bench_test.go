package integrators

import (
	"testing"

	"github.com/san-kum/fluxdrive/internal/dynamo"
)

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &rlCircuit{r: 3.6, l: 0.036}
	x := dynamo.State{0}
	u := dynamo.Control{10}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 1e-5)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &rlCircuit{r: 3.6, l: 0.036}
	x := dynamo.State{0}
	u := dynamo.Control{10}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 1e-5)
	}
}
