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

package repeat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
)

func mustProfile(t *testing.T, level string) sensitivity.Profile {
	t.Helper()
	profile, err := sensitivity.Lookup(level)
	require.NoError(t, err)
	return profile
}

// collinear returns n hits spread far enough apart that no two share a bin
// at any diversity level.
func collinear(n int, queryStart, refStart int64) []genomics.HitPair {
	var hits []genomics.HitPair
	for i := int64(0); i < int64(n); i++ {
		hits = append(hits, genomics.HitPair{Query: queryStart + i*2e6, Reference: refStart + i*2e6})
	}
	return hits
}

func TestFilter_CrossChromosomeRepeat(t *testing.T) {
	hits := genomics.ScaffoldHitMap{
		"chr1": append(collinear(10, 100e6, 100e6),
			genomics.HitPair{Query: 1000, Reference: 5100},
			genomics.HitPair{Query: 3000, Reference: 5200}),
		"chr2": {
			{Query: 5000, Reference: 5300},
			{Query: 7000, Reference: 5400},
		},
		"chr3": {
			{Query: 9000, Reference: 5500},
		},
	}

	got := Filter(hits, mustProfile(t, sensitivity.Order))
	assert.Equal(t, genomics.ScaffoldHitMap{"chr1": collinear(10, 100e6, 100e6)}, got)
}

func TestFilter_BelowRepeatThresholds(t *testing.T) {
	// Four hits from three chromosomes share a reference bin: one hit short of
	// a repeat at the order level.
	hits := genomics.ScaffoldHitMap{
		"chr1": append(collinear(30, 100e6, 100e6), genomics.HitPair{Query: 1000, Reference: 5100}),
		"chr2": append(collinear(3, 300e6, 300e6), genomics.HitPair{Query: 3000, Reference: 5200}),
		"chr3": append(collinear(3, 500e6, 500e6), genomics.HitPair{Query: 5000, Reference: 5300},
			genomics.HitPair{Query: 7000, Reference: 5400}),
	}

	got := Filter(hits, mustProfile(t, sensitivity.Order))
	assert.Equal(t, hits, got)
}

func TestFilter_LocalRepeat(t *testing.T) {
	var repeats []genomics.HitPair
	for i := int64(0); i < 5; i++ {
		repeats = append(repeats, genomics.HitPair{Query: 50000 + i*100, Reference: 1e6 + i*3e6})
	}
	hits := genomics.ScaffoldHitMap{
		"chr1": append(collinear(10, 100e6, 100e6), repeats...),
	}

	got := Filter(hits, mustProfile(t, sensitivity.Order))
	assert.Equal(t, genomics.ScaffoldHitMap{"chr1": collinear(10, 100e6, 100e6)}, got)
}

func TestFilter_OffTarget(t *testing.T) {
	testCases := []struct {
		name  string
		level string
		kept  []string
	}{
		// chr2 holds 1 of 41 hits (2.4%).
		{"order drops below 3%", sensitivity.Order, []string{"chr1"}},
		{"species keeps above 1%", sensitivity.Species, []string{"chr1", "chr2"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hits := genomics.ScaffoldHitMap{
				"chr1": collinear(40, 0, 0),
				"chr2": {{Query: 1, Reference: 1}},
			}
			got := Filter(hits, mustProfile(t, tc.level))
			assert.Equal(t, tc.kept, got.Chromosomes())
		})
	}
}

func TestFilter_NoEmptyChromosomes(t *testing.T) {
	// Every chr2 hit sits in a local repeat bin and the chr3 hit is off
	// target, so neither chromosome may remain as a key.
	var repeats []genomics.HitPair
	for i := int64(0); i < 5; i++ {
		repeats = append(repeats, genomics.HitPair{Query: 50000 + i*100, Reference: 1e6 + i*3e6})
	}
	hits := genomics.ScaffoldHitMap{
		"chr1": collinear(40, 100e6, 100e6),
		"chr2": repeats,
		"chr3": {{Query: 1, Reference: 1}},
	}

	got := Filter(hits, mustProfile(t, sensitivity.Order))
	assert.Equal(t, []string{"chr1"}, got.Chromosomes())
	for chromosome, pairs := range got {
		assert.NotEmpty(t, pairs, "empty chromosome %s retained", chromosome)
	}
}

func TestFilter_Empty(t *testing.T) {
	got := Filter(genomics.ScaffoldHitMap{}, mustProfile(t, sensitivity.Order))
	assert.Empty(t, got)
}

func randomHits(seed int64) genomics.ScaffoldHitMap {
	rng := rand.New(rand.NewSource(seed))
	chromosomes := []string{"chr1", "chr2", "chr3", "chr4", "chrx"}
	hits := make(genomics.ScaffoldHitMap)
	for i := 0; i < 400; i++ {
		chromosome := chromosomes[rng.Intn(len(chromosomes))]
		hits.Add(chromosome, genomics.HitPair{
			Query:     rng.Int63n(200000),
			Reference: rng.Int63n(200000),
		})
	}
	return hits
}

func TestFilter_Properties(t *testing.T) {
	for _, level := range sensitivity.Levels() {
		for seed := int64(1); seed <= 5; seed++ {
			profile := mustProfile(t, level)
			input := randomHits(seed)
			original := randomHits(seed)

			once := Filter(input, profile)
			twice := Filter(once, profile)

			if !assert.Equal(t, once, twice, "%s/%d: filtering is not idempotent", level, seed) {
				continue
			}
			assert.Equal(t, original, input, "%s/%d: input was modified", level, seed)

			for chromosome, pairs := range once {
				assert.NotEmpty(t, pairs, "%s/%d: empty chromosome %s retained", level, seed, chromosome)
				seen := make(map[genomics.HitPair]int)
				for _, hit := range original[chromosome] {
					seen[hit]++
				}
				for _, hit := range pairs {
					if seen[hit] == 0 {
						t.Errorf("%s/%d: hit %v on %s not in input", level, seed, hit, chromosome)
					}
					seen[hit]--
				}
			}
		}
	}
}

func TestBinKey(t *testing.T) {
	testCases := []struct {
		position, radius, want int64
	}{
		{0, 1000, 0},
		{999, 1000, 0},
		{1000, 1000, 1},
		{-1, 1000, -1},
		{-1000, 1000, -1},
		{-1001, 1000, -2},
	}
	for _, tc := range testCases {
		if got := binKey(tc.position, tc.radius); got != tc.want {
			t.Errorf("binKey(%d, %d): got %d, want %d", tc.position, tc.radius, got, tc.want)
		}
	}
}
