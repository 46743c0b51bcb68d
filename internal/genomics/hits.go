// Copyright 2026 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package genomics

import (
	"fmt"
	"sort"
	"strings"
)

// HitPair is the midpoint of one local alignment hit, expressed on the query
// (scaffold) axis and on the reference (chromosome) axis.
type HitPair struct {
	Query, Reference int64
}

func (hit HitPair) String() string {
	return fmt.Sprintf("(%d, %d)", hit.Query, hit.Reference)
}

// Midpoint collapses a hit with the given query and reference coordinates to
// a HitPair.  Coordinates may be given in either orientation.
func Midpoint(queryStart, queryEnd, refStart, refEnd int64) HitPair {
	return HitPair{
		Query:     (queryStart + queryEnd) / 2,
		Reference: (refStart + refEnd) / 2,
	}
}

// NormalizeChromosome returns the case-normalized form of a chromosome name.
func NormalizeChromosome(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ScaffoldHitMap holds the hits of one scaffold keyed by case-normalized
// reference chromosome.  Every key maps to a non-empty slice.
type ScaffoldHitMap map[string][]HitPair

// Add records hit against chromosome.
func (m ScaffoldHitMap) Add(chromosome string, hit HitPair) {
	name := NormalizeChromosome(chromosome)
	m[name] = append(m[name], hit)
}

// Prune removes every chromosome without hits.
func (m ScaffoldHitMap) Prune() {
	for name, hits := range m {
		if len(hits) == 0 {
			delete(m, name)
		}
	}
}

// Total returns the number of hits across all chromosomes.
func (m ScaffoldHitMap) Total() int {
	var n int
	for _, hits := range m {
		n += len(hits)
	}
	return n
}

// Chromosomes returns the keys of m in sorted order.
func (m ScaffoldHitMap) Chromosomes() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
