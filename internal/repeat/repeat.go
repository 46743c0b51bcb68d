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

// Package repeat removes hits that look like repeat noise rather than
// orthologous synteny.
//
// Hits are binned on both axes by integer division with the profile's bin
// radius.  A reference bin that collects enough hits from enough distinct
// chromosomes is a cross-chromosome repeat; a query bin that collects enough
// hits is a local repeat.  Every hit falling in a flagged bin is removed, and
// chromosomes left with only a small share of the scaffold's remaining hits
// are dropped as off-target noise.
package repeat

import (
	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
)

// bin accumulates the hits falling into one bin.
type bin struct {
	hits        int
	chromosomes map[string]bool
}

type bins map[int64]*bin

func (b bins) add(key int64, chromosome string) {
	entry, ok := b[key]
	if !ok {
		entry = &bin{chromosomes: make(map[string]bool)}
		b[key] = entry
	}
	entry.hits++
	entry.chromosomes[chromosome] = true
}

// flagged returns the keys of the bins holding at least minHits hits from at
// least minChromosomes chromosomes.
func (b bins) flagged(minChromosomes, minHits int) map[int64]bool {
	keys := make(map[int64]bool)
	for key, entry := range b {
		if len(entry.chromosomes) >= minChromosomes && entry.hits >= minHits {
			keys[key] = true
		}
	}
	return keys
}

// binKey floors position/radius so that negative positions do not share bin
// zero with positive ones.
func binKey(position, radius int64) int64 {
	key := position / radius
	if position%radius != 0 && position < 0 {
		key--
	}
	return key
}

// Filter returns the hits of one scaffold that survive repeat and off-target
// filtering.  The input is not modified; the result never contains empty
// chromosome entries and may be empty.
func Filter(hits genomics.ScaffoldHitMap, profile sensitivity.Profile) genomics.ScaffoldHitMap {
	radius := profile.BinRadius
	if radius <= 0 {
		radius = 1
	}

	refBins, queryBins := make(bins), make(bins)
	for chromosome, pairs := range hits {
		for _, hit := range pairs {
			refBins.add(binKey(hit.Reference, radius), chromosome)
			queryBins.add(binKey(hit.Query, radius), chromosome)
		}
	}
	crossRepeats := refBins.flagged(profile.MinChromosomes, profile.MinHits)
	localRepeats := queryBins.flagged(0, profile.MinHits)

	filtered := make(genomics.ScaffoldHitMap, len(hits))
	for chromosome, pairs := range hits {
		var kept []genomics.HitPair
		for _, hit := range pairs {
			if crossRepeats[binKey(hit.Reference, radius)] || localRepeats[binKey(hit.Query, radius)] {
				continue
			}
			kept = append(kept, hit)
		}
		filtered[chromosome] = kept
	}

	total := filtered.Total()
	for chromosome, pairs := range filtered {
		if len(pairs) > 0 && float64(len(pairs))*100/float64(total) < profile.MinSharePercent {
			filtered[chromosome] = nil
		}
	}
	filtered.Prune()
	return filtered
}
