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

// Package chain orders the scaffolds placed on one reference chromosome and
// partitions them into chains of candidate neighbours.
//
// The builder walks the chromosome from the leftmost scaffold, each time
// jumping to the nearest unvisited scaffold end point.  A scaffold's
// classification and the side of the next end point decide whether the
// scaffold extends the chain being built, closes it, starts a new one, or
// stands alone.
package chain

import (
	"sort"

	"github.com/igcbioinformatics/Syn2Chr/internal/classify"
	"github.com/igcbioinformatics/Syn2Chr/internal/synteny"
)

// MaxGap is the largest reference distance (in base pairs) between
// neighbouring scaffolds that keeps a chain open.
const MaxGap = 25000000

// Scaffold is a scaffold placed on the chromosome being chained.
type Scaffold struct {
	Name string
	// First is the scaffold's first synteny block on the chromosome, in
	// reference order.
	First synteny.Block
	// Class is the scaffold's classification on the chromosome.
	Class classify.Classification
}

// Chain is an ordered run of scaffold names.
type Chain []string

type side int

const (
	startSide side = iota
	endSide
)

type endpoint struct {
	scaffold int
	position int64
	side     side
}

// step is the end point the walk moves to next.
type step struct {
	scaffold int
	distance int64
	side     side
}

// chromosomeEnd is the implicit end point past the last scaffold.
var chromosomeEnd = step{scaffold: -1, distance: 1, side: startSide}

type builder struct {
	chains  []Chain
	current Chain
}

func (b *builder) flush() {
	if len(b.current) > 0 {
		b.chains = append(b.chains, b.current)
	}
	b.current = nil
}

func (b *builder) evaluate(scaffold Scaffold, next step) {
	switch scaffold.Class {
	case classify.Right:
		if next.side == startSide {
			b.flush()
			b.current = Chain{scaffold.Name}
		} else {
			b.current = append(b.current, scaffold.Name)
			b.flush()
		}
	case classify.Left:
		if next.side == endSide {
			b.flush()
			b.current = Chain{scaffold.Name}
		} else {
			b.current = append(b.current, scaffold.Name)
			b.flush()
		}
	case classify.Stop:
		b.flush()
		b.chains = append(b.chains, Chain{scaffold.Name})
	default:
		b.current = append(b.current, scaffold.Name)
		if next.distance > MaxGap {
			b.flush()
		}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// nearest returns the end point closest to position.  The first of several
// equally close end points wins.
func nearest(endpoints []endpoint, position int64) step {
	best := step{scaffold: -1}
	for _, e := range endpoints {
		if d := abs(position - e.position); best.scaffold < 0 || d < best.distance {
			best = step{scaffold: e.scaffold, distance: d, side: e.side}
		}
	}
	return best
}

func without(endpoints []endpoint, scaffold int) []endpoint {
	kept := endpoints[:0]
	for _, e := range endpoints {
		if e.scaffold != scaffold {
			kept = append(kept, e)
		}
	}
	return kept
}

// Build returns the chains for the scaffolds placed on one chromosome.  Every
// scaffold appears in exactly one chain.
func Build(scaffolds []Scaffold) []Chain {
	if len(scaffolds) == 0 {
		return nil
	}

	sorted := append([]Scaffold(nil), scaffolds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].First.RefStart != sorted[j].First.RefStart {
			return sorted[i].First.RefStart < sorted[j].First.RefStart
		}
		return sorted[i].Name < sorted[j].Name
	})

	endpoints := make([]endpoint, 0, 2*len(sorted))
	for i, s := range sorted {
		endpoints = append(endpoints,
			endpoint{i, s.First.RefStart, startSide},
			endpoint{i, s.First.RefEnd, endSide})
	}

	var (
		b         builder
		current   = 0
		fromStart = false
	)
	for {
		endpoints = without(endpoints, current)
		if len(endpoints) == 0 {
			b.evaluate(sorted[current], chromosomeEnd)
			break
		}

		position := sorted[current].First.RefEnd
		if fromStart {
			position = sorted[current].First.RefStart
		}
		next := nearest(endpoints, position)
		b.evaluate(sorted[current], next)

		fromStart = next.side == endSide
		current = next.scaffold
	}
	b.flush()
	return b.chains
}
