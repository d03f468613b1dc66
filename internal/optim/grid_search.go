package optim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no grid point ran to completion")

// GridSearch evaluates every combination of parameter values on a base
// config and keeps the one minimising a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Trial is one evaluated grid point.
type Trial struct {
	Params   map[string]float64
	Value    float64
	Unstable bool
}

// Search returns the best parameters, their metric value and every trial
// in grid order. Diverging or invalid points are recorded and skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &trials)
	if err != nil {
		return nil, 0, trials, err
	}

	for _, t := range trials {
		if !t.Unstable && t.Value < best {
			best = t.Value
			bestParams = t.Params
		}
	}
	if bestParams == nil {
		return nil, 0, trials, ErrNoCandidate
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	trials *[]Trial,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}
		*trials = append(*trials, evaluate(ctx, base, current, metricName))
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, metricName, trials); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) Trial {
	trial := Trial{Params: params, Unstable: true}

	cfg := base.Clone()
	for k, v := range params {
		if err := cfg.SetParam(k, v); err != nil {
			return trial
		}
	}
	exp, err := experiment.New(cfg, nil)
	if err != nil {
		return trial
	}

	result, err := exp.Run(ctx)
	if err != nil {
		return trial
	}

	val, ok := result.Metrics[metricName]
	if !ok || math.IsNaN(val) {
		return trial
	}
	trial.Value = val
	trial.Unstable = false
	return trial
}
