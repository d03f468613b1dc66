package control

import (
	"errors"
	"math"
	"testing"
)

func TestNewSensorlessObserverInvalid(t *testing.T) {
	m := pmsm()
	if _, err := NewSensorlessObserver(m, 0, 250, 0.2); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := NewSensorlessObserver(m, 250e-6, 0, 0.2); err == nil {
		t.Error("expected error for zero bandwidth")
	}
	if _, err := NewSensorlessObserver(m, 250e-6, 250, -1); err == nil {
		t.Error("expected error for negative damping")
	}

	m.PsiF = 0
	m.Lq = m.Ld
	if _, err := NewSensorlessObserver(m, 250e-6, 250, 0.2); !errors.Is(err, ErrUnobservable) {
		t.Errorf("expected ErrUnobservable, got %v", err)
	}
}

func TestSensorlessObserverStandstill(t *testing.T) {
	o, err := NewSensorlessObserver(pmsm(), 250e-6, 2*math.Pi*40, 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k := 0; k < 1000; k++ {
		o.Update(0, 0, 0)
	}
	if o.Speed() != 0 || o.Angle() != 0 {
		t.Errorf("expected observer at rest, got w=%f theta=%f", o.Speed(), o.Angle())
	}
	if o.Flux() != complex(0.545, 0) {
		t.Errorf("expected magnet flux, got %v", o.Flux())
	}
}

func TestSensorlessObserverTracksRotation(t *testing.T) {
	m := pmsm()
	m.Rs = 0
	ts := 250e-6
	o, err := NewSensorlessObserver(m, ts, 2*math.Pi*40, 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No-load rotation: the true flux in stator coordinates is psi_f*exp(j*w*t).
	w := 2 * math.Pi * 20
	theta := 0.0
	for k := 0; k < 40000; k++ {
		dtheta := theta - o.Angle()
		// Voltage realized in estimated rotor coordinates at no load.
		u := complex(0, w*m.PsiF) * complex(math.Cos(dtheta), math.Sin(dtheta))
		o.Update(u, 0, 0)
		theta += ts * w
	}

	if math.Abs(o.Speed()-w) > 0.05*w {
		t.Errorf("expected speed near %f, got %f", w, o.Speed())
	}
}
