package plant

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/integrators"
	"github.com/san-kum/fluxdrive/internal/motor"
)

func pmsm() motor.Parameters {
	return motor.Parameters{Rs: 3.6, Ld: 0.036, Lq: 0.051, PsiF: 0.545, PolePair: 3, J: 0.015}
}

func TestNewDriveInvalid(t *testing.T) {
	bad := pmsm()
	bad.J = 0

	tests := []struct {
		name     string
		m        motor.Parameters
		uDC      float64
		friction float64
	}{
		{"no inertia", bad, 540, 0},
		{"zero dc voltage", pmsm(), 0, 0},
		{"nan dc voltage", pmsm(), math.NaN(), 0},
		{"negative friction", pmsm(), 540, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDrive(tt.m, tt.uDC, tt.friction, nil)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestStandstillEquilibrium(t *testing.T) {
	d, err := NewDrive(pmsm(), 540, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	x := d.InitialState()
	dx := d.Derive(x, dynamo.Control{0.5, 0.5, 0.5}, 0)
	for k, v := range dx {
		if math.Abs(v) > 1e-12 {
			t.Errorf("dx[%d] = %v, want 0", k, v)
		}
	}
	if tau := d.Torque(x); math.Abs(tau) > 1e-12 {
		t.Errorf("torque = %v, want 0", tau)
	}
}

func TestCommonModeDutyHasNoEffect(t *testing.T) {
	d, _ := NewDrive(pmsm(), 540, 0, nil)
	a := d.StatorVoltage(dynamo.Control{0.7, 0.2, 0.4})
	b := d.StatorVoltage(dynamo.Control{0.8, 0.3, 0.5})
	if math.Abs(real(a-b)) > 1e-12 || math.Abs(imag(a-b)) > 1e-12 {
		t.Errorf("common-mode shift changed voltage: %v vs %v", a, b)
	}
}

func TestPhaseCurrentsBalanced(t *testing.T) {
	d, _ := NewDrive(pmsm(), 540, 0, nil)
	x := dynamo.State{0.6, 0.3, 10, 0.4}
	abc := d.PhaseCurrents(x)
	if sum := abc[0] + abc[1] + abc[2]; math.Abs(sum) > 1e-12 {
		t.Errorf("phase currents sum to %v", sum)
	}
}

func TestLoadDecelerates(t *testing.T) {
	load := StepLoad([]LoadStep{{Time: 0, Torque: 3}})
	d, _ := NewDrive(pmsm(), 540, 0, load)
	x := d.InitialState()
	rk := integrators.NewRK4()

	u := dynamo.Control{0.5, 0.5, 0.5}
	for k := 0; k < 100; k++ {
		x = rk.Step(d, x, u, float64(k)*1e-5, 1e-5)
	}
	// Zero voltage, no magnet torque at standstill.
	if x[Speed] >= 0 {
		t.Errorf("speed = %v, want negative", x[Speed])
	}
	want := -3 / d.Motor.J * 1e-3
	if math.Abs(x[Speed]-want) > 0.05*math.Abs(want) {
		t.Errorf("speed = %v, want about %v", x[Speed], want)
	}
}

func TestStepLoad(t *testing.T) {
	load := StepLoad([]LoadStep{{Time: 1.0, Torque: 7}, {Time: 0.5, Torque: 2}})
	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.5, 2},
		{0.9, 2},
		{1.0, 7},
		{5, 7},
	}
	for _, tt := range tests {
		if got := load(tt.t); got != tt.want {
			t.Errorf("load(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestSetParam(t *testing.T) {
	d, _ := NewDrive(pmsm(), 540, 0, nil)
	if err := d.SetParam("u_dc", 300); err != nil {
		t.Fatal(err)
	}
	if d.GetParams()["u_dc"] != 300 {
		t.Error("u_dc not updated")
	}
	if err := d.SetParam("u_dc", -1); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
	if err := d.SetParam("bogus", 1); err == nil {
		t.Error("expected error for unknown param")
	}
}
