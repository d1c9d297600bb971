// Copyright 2025 The vozpublica Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vecmath implements the small set of vector operations used by the
// drift analysis: centroids, cosine similarity and cosine distance.
//
// Vectors are stored as []float32, matching what embedding providers return.
// Accumulation happens in float64 so centroids over thousands of vectors do
// not lose precision.
package vecmath

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoVectors is returned by Mean when called with an empty set.
	ErrNoVectors = errors.New("mean of empty vector set")

	// ErrDimensionMismatch is returned when vectors in one set differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Mean returns the elementwise arithmetic mean of vectors.
// It never produces NaN: an empty set or an empty first vector is an error.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrNoVectors
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for j, x := range v {
			sums[j] += float64(x)
		}
	}

	n := float64(len(vectors))
	mean := make([]float32, dim)
	for j, s := range sums {
		mean[j] = float32(s / n)
	}
	return mean, nil
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|).
//
// Similarity is undefined when either vector has zero norm; in that case the
// sentinel 0.0 is returned instead of NaN. Vectors of different length, or
// empty vectors, also yield 0.0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance returns 1 - CosineSimilarity(a, b).
// A zero-norm input therefore has distance 1.0.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Normalize returns a unit-length copy of v.
// A zero vector normalizes to a zero vector of the same length.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Round2 rounds x to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
