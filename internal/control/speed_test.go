package control

import (
	"math"
	"testing"
)

func TestNewSpeedControllerGains(t *testing.T) {
	alpha := 2 * math.Pi * 4
	s, err := NewSpeedController(0.015, alpha, 21, 250e-6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(s.Kp-2*alpha*0.015) > 1e-12 {
		t.Errorf("unexpected Kp %f", s.Kp)
	}
	if math.Abs(s.Ki-alpha*alpha*0.015) > 1e-12 {
		t.Errorf("unexpected Ki %f", s.Ki)
	}
	if math.Abs(s.Kt-alpha*0.015) > 1e-12 {
		t.Errorf("unexpected Kt %f", s.Kt)
	}
}

func TestNewSpeedControllerInvalid(t *testing.T) {
	tests := []struct {
		name             string
		j, alpha, tauMax float64
		ts               float64
	}{
		{"zero inertia", 0, 1, 1, 1e-4},
		{"zero bandwidth", 0.01, 0, 1, 1e-4},
		{"zero period", 0.01, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSpeedController(tt.j, tt.alpha, tt.tauMax, tt.ts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSpeedControllerLimit(t *testing.T) {
	s, err := NewSpeedController(0.015, 25, 5, 250e-6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tau := s.Output(1000, 0); tau != 5 {
		t.Errorf("expected limited torque 5, got %f", tau)
	}
	if tau := s.Output(-1000, 0); tau != -5 {
		t.Errorf("expected limited torque -5, got %f", tau)
	}
}

func TestSpeedControllerAntiWindup(t *testing.T) {
	s, err := NewSpeedController(0.015, 25, 5, 250e-6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for k := 0; k < 10000; k++ {
		tau := s.Output(1000, 0)
		s.Update(tau)
	}

	// Integral stays bounded near the saturation level.
	unlimited := s.Kt*1000 + s.integral
	if math.Abs(unlimited) > 2*s.Kt*1000 {
		t.Errorf("integrator wound up: %f", s.integral)
	}
}

func TestSpeedControllerIntegratesError(t *testing.T) {
	s, err := NewSpeedController(0.015, 25, 0, 250e-6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := s.Output(10, 9)
	s.Update(first)
	second := s.Output(10, 9)
	if second <= first {
		t.Errorf("expected growing output under constant error, got %f then %f", first, second)
	}
}

func TestSpeedControllerParams(t *testing.T) {
	s, err := NewSpeedController(0.015, 25, 5, 250e-6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetParam("Kp", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.GetParams()["Kp"] != 3 {
		t.Errorf("expected Kp 3, got %f", s.GetParams()["Kp"])
	}
	if err := s.SetParam("bogus", 1); err == nil {
		t.Error("expected error for unknown param")
	}
	s.Reset()
	if s.integral != 0 {
		t.Error("expected cleared integrator")
	}
}

func TestStepProfile(t *testing.T) {
	p := NewStepProfile([]Step{{Time: 0.5, Speed: -10}, {Time: 0.2, Speed: 100}})
	tests := []struct {
		t, want float64
	}{
		{0, 0},
		{0.1999, 0},
		{0.2, 100},
		{0.4, 100},
		{0.5, -10},
		{10, -10},
	}
	for _, tt := range tests {
		if got := p.At(tt.t); got != tt.want {
			t.Errorf("At(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}
