package integrators

import "github.com/san-kum/fluxdrive/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method. The stage buffers
// are reused between steps, so an RK4 must not be shared between sessions.
type RK4 struct {
	k   [4]dynamo.State
	arg dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.arg) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.arg = make(dynamo.State, n)
}

// stage evaluates sys at x + a·k into dst.
func (r *RK4) stage(dst dynamo.State, sys dynamo.System, x, k dynamo.State, a float64, u dynamo.Control, t float64) {
	copy(r.arg, x)
	if k != nil {
		axpy(r.arg, a, k)
	}
	copy(dst, sys.Derive(r.arg, u, t))
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) dynamo.State {
	r.resize(len(x))
	k1, k2, k3, k4 := r.k[0], r.k[1], r.k[2], r.k[3]

	r.stage(k1, sys, x, nil, 0, u, t)
	r.stage(k2, sys, x, k1, h/2, u, t+h/2)
	r.stage(k3, sys, x, k2, h/2, u, t+h/2)
	r.stage(k4, sys, x, k3, h, u, t+h)

	next := x.Clone()
	for i := range next {
		next[i] += h / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
	return next
}
