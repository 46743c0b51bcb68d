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

package synteny

import (
	"sort"

	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
)

const (
	// BreakFactor scales the median query-axis gap between neighbouring hits
	// into the collinearity tolerance.
	BreakFactor = 100

	// MaxSparseDensity is the largest average reference span per hit (in base
	// pairs) a block may have when noise suppression is on.
	MaxSparseDensity = 1000000
)

// BreakDistance returns the collinearity tolerance for hits: BreakFactor times
// the median of the gaps between consecutive query positions, taking the
// lower of the two middle gaps when their count is even.  It returns zero for
// fewer than two hits.
func BreakDistance(hits []genomics.HitPair) int64 {
	if len(hits) < 2 {
		return 0
	}
	positions := make([]int64, len(hits))
	for i, hit := range hits {
		positions[i] = hit.Query
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	gaps := make([]int64, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		gaps[i-1] = positions[i] - positions[i-1]
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[(len(gaps)-1)/2] * BreakFactor
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Group clusters the hits of one scaffold on one chromosome into collinear
// blocks, ordered by reference position.  A block is kept only when it holds
// more than profile.MinBlockHits hits.  With noiseSuppress set, lone hits and
// blocks sparser than MaxSparseDensity are dropped as well; otherwise a lone
// hit is returned as a single degenerate block.
func Group(hits []genomics.HitPair, profile sensitivity.Profile, noiseSuppress bool) []Block {
	switch {
	case len(hits) == 0:
		return nil
	case len(hits) == 1:
		if noiseSuppress {
			return nil
		}
		return []Block{newBlock(hits[0], hits[0], 1)}
	}

	limit := BreakDistance(hits)

	sorted := append([]genomics.HitPair(nil), hits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Reference != sorted[j].Reference {
			return sorted[i].Reference < sorted[j].Reference
		}
		return sorted[i].Query < sorted[j].Query
	})

	keep := func(block Block) bool {
		if block.Hits <= profile.MinBlockHits {
			return false
		}
		return !noiseSuppress || block.Density() < MaxSparseDensity
	}

	var (
		blocks []Block
		start  = 0
	)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if abs(cur.Query-prev.Query) <= limit && abs(cur.Reference-prev.Reference) <= limit {
			continue
		}
		if block := newBlock(sorted[start], prev, i-start); keep(block) {
			blocks = append(blocks, block)
		}
		start = i
	}
	if block := newBlock(sorted[start], sorted[len(sorted)-1], len(sorted)-start); keep(block) {
		blocks = append(blocks, block)
	}
	return blocks
}
