package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestConfig holds random forest hyperparameters
type ForestConfig struct {
	Trees           int
	Seed            int64
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
}

// DefaultForestConfig mirrors the classic 100-tree, seed-42 setup
func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 100, Seed: 42, MinSamplesSplit: 2}
}

func (c ForestConfig) normalized() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	return c
}

// ForestClassifier is a bagged ensemble of Gini classification trees.
// Classes are sorted lexicographically; probability slots follow that order.
type ForestClassifier struct {
	Classes     []string
	NumFeatures int
	Trees       []Tree
}

// ForestRegressor is a bagged ensemble of variance-reduction regression trees
type ForestRegressor struct {
	NumFeatures int
	Trees       []Tree
}

// FitForestClassifier fits a classifier on X with string labels y.
// Each tree samples sqrt(d) candidate features per split.
func FitForestClassifier(ctx context.Context, cfg ForestConfig, X [][]float64, y []string) (*ForestClassifier, error) {
	width, err := validate(X, len(y))
	if err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	seen := make(map[string]struct{})
	for _, label := range y {
		seen[label] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded := make([]int, len(y))
	for i, label := range y {
		encoded[i] = index[label]
	}

	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(width)))))
	trees, err := fitTrees(ctx, cfg, len(X), func(rng *rand.Rand, tree *Tree) *treeBuilder {
		return &treeBuilder{
			X:       X,
			classes: encoded,
			nClass:  len(classes),
			params:  treeParams{maxFeatures: maxFeatures, minSamplesSplit: cfg.MinSamplesSplit, maxDepth: cfg.MaxDepth},
			rng:     rng,
			tree:    tree,
		}
	})
	if err != nil {
		return nil, err
	}
	return &ForestClassifier{Classes: classes, NumFeatures: width, Trees: trees}, nil
}

// FitForestRegressor fits a regressor on X with continuous targets y
func FitForestRegressor(ctx context.Context, cfg ForestConfig, X [][]float64, y []float64) (*ForestRegressor, error) {
	width, err := validate(X, len(y))
	if err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	targets := append([]float64(nil), y...)
	trees, err := fitTrees(ctx, cfg, len(X), func(rng *rand.Rand, tree *Tree) *treeBuilder {
		return &treeBuilder{
			X:       X,
			targets: targets,
			params:  treeParams{maxFeatures: width, minSamplesSplit: cfg.MinSamplesSplit, maxDepth: cfg.MaxDepth},
			rng:     rng,
			tree:    tree,
		}
	})
	if err != nil {
		return nil, err
	}
	return &ForestRegressor{NumFeatures: width, Trees: trees}, nil
}

// fitTrees grows cfg.Trees trees in parallel. Tree i draws its bootstrap
// sample and feature order from its own source seeded with cfg.Seed+i, so the
// result does not depend on scheduling.
func fitTrees(ctx context.Context, cfg ForestConfig, n int, newBuilder func(*rand.Rand, *Tree) *treeBuilder) ([]Tree, error) {
	trees := make([]Tree, cfg.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(cfg.Seed + int64(i))) //nolint:gosec // reproducible bagging
			sample := make([]int, n)
			for k := range sample {
				sample[k] = rng.Intn(n)
			}
			newBuilder(rng, &trees[i]).grow(sample, 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit trees: %w", err)
	}
	return trees, nil
}

func validate(X [][]float64, labels int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyTrainingSet
	}
	if len(X) != labels {
		return 0, fmt.Errorf("%w: %d samples, %d labels", ErrLabelCount, len(X), labels)
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("row %d: %w: got %d, want %d", i, ErrDimension, len(row), width)
		}
	}
	return width, nil
}

// PredictProba averages leaf class fractions over all trees
func (f *ForestClassifier) PredictProba(x []float64) ([]float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != f.NumFeatures {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), f.NumFeatures)
	}
	proba := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for c, p := range f.Trees[i].leaf(x) {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the most probable class and its probability.
// Ties resolve to the earliest class.
func (f *ForestClassifier) Predict(x []float64) (string, float64, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return "", 0, err
	}
	best := 0
	for c := range proba {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.Classes[best], proba[best], nil
}

// Predict averages the tree means
func (f *ForestRegressor) Predict(x []float64) (float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), f.NumFeatures)
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].leaf(x)[0]
	}
	return sum / float64(len(f.Trees)), nil
}
