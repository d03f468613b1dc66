package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fluxdrive/internal/dynamo"
)

type Simulator struct {
	session   *Session
	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

func New(s *Session) *Simulator {
	return &Simulator{
		session:   s,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Session() *Session { return s.session }

// Ticks returns the number of sampling periods covering duration.
func (s *Simulator) Ticks(duration float64) int {
	ts := s.session.ctrl.Parameters().Ts
	return int(math.Round(duration / ts))
}

// Run advances the session by duration seconds. On divergence or
// cancellation the partial result is returned with the error.
func (s *Simulator) Run(ctx context.Context, duration float64) (*Result, error) {
	if !(duration > 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrParameterBounds, duration)
	}

	steps := s.Ticks(duration)
	result := &Result{
		Times:   make([]float64, 0, steps+1),
		States:  make([]dynamo.State, 0, steps+1),
		Duties:  make([]dynamo.Control, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.Times = append(result.Times, s.session.Time())
	result.States = append(result.States, s.session.State())

	var runErr error
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
			break
		}

		sample, err := s.session.Tick()
		s.publish(sample)
		if err != nil {
			runErr = err
			break
		}

		result.StepsTaken++
		result.Times = append(result.Times, s.session.Time())
		result.States = append(result.States, s.session.State())
		result.Duties = append(result.Duties, sample.Control)
	}

	if s.session.telemetry != nil {
		result.Telemetry = s.session.telemetry.Records
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}

// RunWithCallback ticks until duration elapses, the callback returns false
// or the context is canceled.
func (s *Simulator) RunWithCallback(ctx context.Context, duration float64, callback func(dynamo.Sample) bool) error {
	steps := s.Ticks(duration)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}

		sample, err := s.session.Tick()
		s.publish(sample)
		if err != nil {
			return err
		}
		if !callback(sample) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) publish(sample dynamo.Sample) {
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, obs := range s.observers {
		obs.OnStep(sample)
	}
}

// IsUnstable reports whether err is a divergence.
func IsUnstable(err error) bool {
	return errors.Is(err, dynamo.ErrUnstable)
}
