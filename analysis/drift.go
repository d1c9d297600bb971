package analysis

import (
	"sort"

	"github.com/Perruchok/vozpublica/vecmath"
)

// EvolutionPoint is the presence of a concept in one period.
type EvolutionPoint struct {
	Period             string  `json:"period" yaml:"period"`
	CentroidSimilarity float64 `json:"centroid_similarity" yaml:"centroid_similarity"`
	NumChunks          int     `json:"num_chunks" yaml:"num_chunks"`
}

// DriftPoint is the discourse shift between two adjacent periods.
type DriftPoint struct {
	From           string  `json:"from" yaml:"from"`
	To             string  `json:"to" yaml:"to"`
	SemanticChange float64 `json:"semantic_change" yaml:"semantic_change"`
}

// Evolution bundles the evolution points and drift computed for one concept.
// Points and Drift are never nil so they encode as empty lists.
type Evolution struct {
	Points   []EvolutionPoint `json:"points" yaml:"points"`
	Drift    []DriftPoint     `json:"drift" yaml:"drift"`
	MaxDrift *DriftPoint      `json:"max_drift" yaml:"max_drift"`
}

func sortedKeys(m map[string][]float32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EvolutionPoints scores each period centroid against the concept vector.
// Similarities are rounded to two decimals; periods are in chronological order.
func EvolutionPoints(centroids map[string][]float32, concept []float32, counts map[string]int) []EvolutionPoint {
	points := make([]EvolutionPoint, 0, len(centroids))
	for _, period := range sortedKeys(centroids) {
		points = append(points, EvolutionPoint{
			Period:             period,
			CentroidSimilarity: vecmath.Round2(vecmath.CosineSimilarity(centroids[period], concept)),
			NumChunks:          counts[period],
		})
	}
	return points
}

// Drift computes 1 - cos(c_i, c_i+1) for every pair of chronologically
// adjacent periods, rounded to two decimals.
func Drift(centroids map[string][]float32) []DriftPoint {
	periods := sortedKeys(centroids)
	if len(periods) < 2 {
		return []DriftPoint{}
	}

	drift := make([]DriftPoint, 0, len(periods)-1)
	for i := 0; i < len(periods)-1; i++ {
		from, to := periods[i], periods[i+1]
		drift = append(drift, DriftPoint{
			From:           from,
			To:             to,
			SemanticChange: vecmath.Round2(vecmath.CosineDistance(centroids[from], centroids[to])),
		})
	}
	return drift
}

// MaxDrift returns the entry with the largest semantic change. Ties go to the
// earliest pair. It returns nil for an empty list.
func MaxDrift(drift []DriftPoint) *DriftPoint {
	if len(drift) == 0 {
		return nil
	}
	best := drift[0]
	for _, d := range drift[1:] {
		if d.SemanticChange > best.SemanticChange {
			best = d
		}
	}
	return &best
}

// ComputeEvolution runs the full evolution computation over an aggregator.
func ComputeEvolution(agg *Aggregator, concept []float32) Evolution {
	centroids := agg.Centroids()
	drift := Drift(centroids)
	return Evolution{
		Points:   EvolutionPoints(centroids, concept, agg.Counts()),
		Drift:    drift,
		MaxDrift: MaxDrift(drift),
	}
}

// TwoGroupSemanticChange returns the cosine distance between the means of two
// groups of embeddings. If either group is empty the result is 0.0. The value
// is not rounded.
func TwoGroupSemanticChange(a, b [][]float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0.0, nil
	}
	meanA, err := vecmath.Mean(a)
	if err != nil {
		return 0, err
	}
	meanB, err := vecmath.Mean(b)
	if err != nil {
		return 0, err
	}
	return vecmath.CosineDistance(meanA, meanB), nil
}
