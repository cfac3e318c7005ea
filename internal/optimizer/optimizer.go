// Package optimizer allocates acreage across crops to maximize expected profit
// under a land and a budget constraint.
package optimizer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"plantprofit/internal/domain"
	"plantprofit/internal/logging"
)

const (
	tolerance       = 1e-9
	integralEpsilon = 1e-6
	DefaultMaxNodes = 20000
)

// Candidate is one crop the optimizer may plant.
type Candidate struct {
	Key            string  `json:"key"`
	EstPrice       float64 `json:"estPrice"`
	EstimatedYield float64 `json:"estimatedYield"`
	EstCosts       float64 `json:"estCosts"`
}

// ProfitPerAcre is price times yield minus costs.
func (c Candidate) ProfitPerAcre() float64 {
	return c.EstPrice*c.EstimatedYield - c.EstCosts
}

// Options tunes the solver. Integer requests whole-acre allocations.
type Options struct {
	Integer  bool
	MaxNodes int
}

// Allocation is the acreage assigned to one crop.
type Allocation struct {
	Key           string  `json:"key"`
	Acres         float64 `json:"acres"`
	ProfitPerAcre float64 `json:"profitPerAcre"`
}

// Plan is the optimizer's answer. Allocations follow candidate order and
// include every candidate, with 0 acres for excluded crops.
type Plan struct {
	Allocations []Allocation `json:"allocation"`
	TotalProfit float64      `json:"totalProfit"`
	// Optimal is false when branch and bound stopped at the node limit.
	Optimal bool `json:"optimal"`
	Nodes   int  `json:"nodes"`
}

// Optimize maximizes sum(acres_i * profit_i) subject to sum(acres_i) <= acres
// and sum(acres_i * cost_i) <= budget. Invalid models fail with
// domain.ErrInvalidModel before any solving happens.
func Optimize(candidates []Candidate, acres, budget float64, opts Options) (Plan, error) {
	if err := validate(candidates, acres, budget); err != nil {
		return Plan{}, err
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}

	plan := Plan{Allocations: make([]Allocation, len(candidates)), Optimal: true}
	for i, c := range candidates {
		plan.Allocations[i] = Allocation{Key: c.Key, ProfitPerAcre: c.ProfitPerAcre()}
	}

	// Crops that lose money never improve the objective; drop them from the LP.
	var active []int
	for i, c := range candidates {
		if c.ProfitPerAcre() > 0 {
			active = append(active, i)
		}
	}
	if len(active) == 0 || acres == 0 {
		return plan, nil
	}

	p := &problem{acres: acres, budget: budget}
	for _, i := range active {
		p.profit = append(p.profit, candidates[i].ProfitPerAcre())
		p.cost = append(p.cost, candidates[i].EstCosts)
	}

	var x []float64
	var err error
	if opts.Integer {
		x, plan.Nodes, plan.Optimal, err = p.branchAndBound(opts.MaxNodes)
	} else {
		_, x, err = p.relaxation(nil)
		plan.Nodes = 1
	}
	if err != nil {
		return Plan{}, fmt.Errorf("solve allocation: %w", err)
	}

	for j, i := range active {
		v := x[j]
		if math.Abs(v) < integralEpsilon {
			v = 0
		}
		plan.Allocations[i].Acres = v
	}
	for _, a := range plan.Allocations {
		plan.TotalProfit += a.Acres * a.ProfitPerAcre
	}
	return plan, nil
}

func validate(candidates []Candidate, acres, budget float64) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidate crops: %w", domain.ErrInvalidModel)
	}
	if !finite(acres) || acres < 0 {
		return fmt.Errorf("acres must be a non-negative number, got %v: %w", acres, domain.ErrInvalidModel)
	}
	if !finite(budget) || budget < 0 {
		return fmt.Errorf("budget must be a non-negative number, got %v: %w", budget, domain.ErrInvalidModel)
	}
	seen := make(map[string]struct{}, len(candidates))
	for i, c := range candidates {
		if strings.TrimSpace(c.Key) == "" {
			return fmt.Errorf("candidate %d has no key: %w", i, domain.ErrInvalidModel)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("duplicate candidate %q: %w", c.Key, domain.ErrInvalidModel)
		}
		seen[c.Key] = struct{}{}
		if !finite(c.EstPrice) || !finite(c.EstimatedYield) || !finite(c.EstCosts) || !finite(c.ProfitPerAcre()) {
			return fmt.Errorf("candidate %q has non-finite coefficients: %w", c.Key, domain.ErrInvalidModel)
		}
		if c.EstCosts < 0 {
			return fmt.Errorf("candidate %q has negative costs: %w", c.Key, domain.ErrInvalidModel)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// bound fixes one variable from above (x <= value) or below (x >= value).
type bound struct {
	variable int
	upper    bool
	value    float64
}

type problem struct {
	profit []float64
	cost   []float64
	acres  float64
	budget float64
}

// relaxation solves the LP with the given extra bounds in standard form:
// every inequality gets its own slack column and the objective is negated
// because lp.Simplex minimizes.
func (p *problem) relaxation(bounds []bound) (float64, []float64, error) {
	n := len(p.profit)
	rows := 2 + len(bounds)
	cols := n + rows

	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)

	for j := 0; j < n; j++ {
		c[j] = -p.profit[j]
		A.Set(0, j, 1)
		A.Set(1, j, p.cost[j])
	}
	A.Set(0, n, 1)
	b[0] = p.acres
	A.Set(1, n+1, 1)
	b[1] = p.budget

	for k, bd := range bounds {
		row := 2 + k
		A.Set(row, bd.variable, 1)
		if bd.upper {
			A.Set(row, n+row, 1)
		} else {
			A.Set(row, n+row, -1)
		}
		b[row] = bd.value
	}

	optF, x, err := lp.Simplex(c, A, b, tolerance, nil)
	if err != nil {
		return 0, nil, err
	}
	return -optF, x[:n], nil
}

// branchAndBound explores depth first, starting from the floored relaxation
// as incumbent.
func (p *problem) branchAndBound(maxNodes int) ([]float64, int, bool, error) {
	rootObj, rootX, err := p.relaxation(nil)
	if err != nil {
		return nil, 1, false, err
	}

	best := make([]float64, len(rootX))
	for i, v := range rootX {
		best[i] = math.Floor(v + integralEpsilon)
	}
	bestObj := p.objective(best)
	nodes := 1

	type node struct {
		bounds []bound
		obj    float64
		x      []float64
	}
	stack := []node{{obj: rootObj, x: rootX}}

	for len(stack) > 0 {
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if nd.x == nil {
			if nodes >= maxNodes {
				logging.Warnf("optimizer", "node limit %d reached, returning best plan found", maxNodes)
				return best, nodes, false, nil
			}
			nodes++
			obj, x, err := p.relaxation(nd.bounds)
			if err != nil {
				if !errors.Is(err, lp.ErrInfeasible) {
					logging.Debugf("optimizer", "pruning branch: %v", err)
				}
				continue
			}
			nd.obj, nd.x = obj, x
		}
		if nd.obj <= bestObj+tolerance {
			continue
		}

		branch := -1
		for i, v := range nd.x {
			if frac := v - math.Floor(v); frac > integralEpsilon && frac < 1-integralEpsilon {
				branch = i
				break
			}
		}
		if branch < 0 {
			rounded := make([]float64, len(nd.x))
			for i, v := range nd.x {
				rounded[i] = math.Round(v)
			}
			if obj := p.objective(rounded); obj > bestObj && p.feasible(rounded) {
				best, bestObj = rounded, obj
			}
			continue
		}

		v := nd.x[branch]
		down := append(append([]bound(nil), nd.bounds...), bound{variable: branch, upper: true, value: math.Floor(v)})
		up := append(append([]bound(nil), nd.bounds...), bound{variable: branch, upper: false, value: math.Ceil(v)})
		stack = append(stack, node{bounds: up}, node{bounds: down})
	}
	return best, nodes, true, nil
}

func (p *problem) objective(x []float64) float64 {
	total := 0.0
	for i, v := range x {
		total += v * p.profit[i]
	}
	return total
}

func (p *problem) feasible(x []float64) bool {
	area, spend := 0.0, 0.0
	for i, v := range x {
		if v < 0 {
			return false
		}
		area += v
		spend += v * p.cost[i]
	}
	return area <= p.acres+integralEpsilon && spend <= p.budget+integralEpsilon*math.Max(1, p.budget)
}
