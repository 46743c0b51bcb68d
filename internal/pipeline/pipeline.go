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

// Package pipeline runs the synteny inference stages over a hit table:
// significance cutoff, repeat filtering, block grouping, classification and
// chain building.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/igcbioinformatics/Syn2Chr/internal/blast"
	"github.com/igcbioinformatics/Syn2Chr/internal/chain"
	"github.com/igcbioinformatics/Syn2Chr/internal/classify"
	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
	"github.com/igcbioinformatics/Syn2Chr/internal/logging"
	"github.com/igcbioinformatics/Syn2Chr/internal/repeat"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
	"github.com/igcbioinformatics/Syn2Chr/internal/synteny"
)

// Options configures a pipeline run.
type Options struct {
	Profile sensitivity.Profile
	// Filter selects the records to use.  A nil Filter keeps every record.
	Filter blast.Filter
	// Chromosomes restricts chain building to the named chromosomes.  When
	// empty every chromosome with at least one block is chained.
	Chromosomes []string
	// Workers bounds the number of chromosomes chained concurrently.  Zero
	// means GOMAXPROCS.
	Workers int
	Logger  *logging.Logger
}

// Result holds the output of every stage of a run.
type Result struct {
	Profile sensitivity.Profile
	// Hits holds the repeat-filtered hits keyed by scaffold.
	Hits map[string]genomics.ScaffoldHitMap
	// Blocks holds the noise-suppressed blocks keyed by scaffold and then by
	// chromosome.
	Blocks map[string]map[string][]synteny.Block
	// Chains and Regions are keyed by chromosome.  Regions[c][i] is the
	// reference span covered by Chains[c][i].
	Chains  map[string][]chain.Chain
	Regions map[string][]genomics.Region
	// Chromosomes lists the keys of Chains in sorted order.
	Chromosomes []string
}

// BuildHitMaps reduces the records selected by keep to hit pairs, keyed by
// scaffold.
func BuildHitMaps(records []blast.Record, keep blast.Filter) map[string]genomics.ScaffoldHitMap {
	maps := make(map[string]genomics.ScaffoldHitMap)
	for _, record := range records {
		if keep != nil && !keep(record) {
			continue
		}
		hits, ok := maps[record.Query]
		if !ok {
			hits = make(genomics.ScaffoldHitMap)
			maps[record.Query] = hits
		}
		hits.Add(record.Chromosome(), record.HitPair())
	}
	return maps
}

// FilterRepeats applies the repeat filter to every scaffold.  Scaffolds left
// without hits are dropped.
func FilterRepeats(maps map[string]genomics.ScaffoldHitMap, profile sensitivity.Profile) map[string]genomics.ScaffoldHitMap {
	filtered := make(map[string]genomics.ScaffoldHitMap, len(maps))
	for scaffold, hits := range maps {
		if kept := repeat.Filter(hits, profile); len(kept) > 0 {
			filtered[scaffold] = kept
		}
	}
	return filtered
}

// Blocks groups the hits of one scaffold on every chromosome.  Chromosomes
// without blocks are omitted.
func Blocks(hits genomics.ScaffoldHitMap, profile sensitivity.Profile, noiseSuppress bool) map[string][]synteny.Block {
	blocks := make(map[string][]synteny.Block)
	for chromosome, pairs := range hits {
		if b := synteny.Group(pairs, profile, noiseSuppress); len(b) > 0 {
			blocks[chromosome] = b
		}
	}
	return blocks
}

// Run executes every stage over records.  Chromosomes are chained
// concurrently; cancelling ctx stops chromosomes not yet started.
func Run(ctx context.Context, records []blast.Record, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Named("pipeline")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	raw := BuildHitMaps(records, opts.Filter)
	result := &Result{
		Profile: opts.Profile,
		Hits:    FilterRepeats(raw, opts.Profile),
		Blocks:  make(map[string]map[string][]synteny.Block),
	}
	log.Debug().
		Int("records", len(records)).
		Int("scaffolds", len(raw)).
		Int("retained", len(result.Hits)).
		Str("profile", opts.Profile.String()).
		Msg("filtered hits")

	present := make(map[string]bool)
	for scaffold, hits := range result.Hits {
		blocks := Blocks(hits, opts.Profile, true)
		if len(blocks) == 0 {
			continue
		}
		result.Blocks[scaffold] = blocks
		for chromosome := range blocks {
			present[chromosome] = true
		}
	}

	result.Chromosomes = targets(opts.Chromosomes, present)

	var (
		chains      = make([][]chain.Chain, len(result.Chromosomes))
		regions     = make([][]genomics.Region, len(result.Chromosomes))
		group, gctx = errgroup.WithContext(ctx)
	)
	group.SetLimit(workers)
	for i, chromosome := range result.Chromosomes {
		i, chromosome := i, chromosome
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, r, err := chainChromosome(result.Blocks, chromosome)
			if err != nil {
				return fmt.Errorf("chaining %s: %w", chromosome, err)
			}
			log.Debug().Str("chromosome", chromosome).Int("chains", len(c)).Msg("chained chromosome")
			chains[i], regions[i] = c, r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result.Chains = make(map[string][]chain.Chain, len(result.Chromosomes))
	result.Regions = make(map[string][]genomics.Region, len(result.Chromosomes))
	for i, chromosome := range result.Chromosomes {
		result.Chains[chromosome] = chains[i]
		result.Regions[chromosome] = regions[i]
	}
	log.Info().
		Int("scaffolds", len(result.Blocks)).
		Int("chromosomes", len(result.Chromosomes)).
		Msg("synteny built")
	return result, nil
}

func targets(requested []string, present map[string]bool) []string {
	var names []string
	if len(requested) == 0 {
		for name := range present {
			names = append(names, name)
		}
	} else {
		seen := make(map[string]bool)
		for _, name := range requested {
			name = genomics.NormalizeChromosome(name)
			if name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func chainChromosome(blocks map[string]map[string][]synteny.Block, chromosome string) ([]chain.Chain, []genomics.Region, error) {
	var scaffolds []chain.Scaffold
	for name, byChromosome := range blocks {
		target := byChromosome[chromosome]
		if len(target) == 0 {
			continue
		}
		class, err := classify.Classify(byChromosome, chromosome)
		if err != nil {
			return nil, nil, fmt.Errorf("classifying %s: %w", name, err)
		}
		scaffolds = append(scaffolds, chain.Scaffold{Name: name, First: target[0], Class: class})
	}

	chains := chain.Build(scaffolds)
	if chains == nil {
		return []chain.Chain{}, []genomics.Region{}, nil
	}
	regions := make([]genomics.Region, len(chains))
	for i, c := range chains {
		regions[i] = footprint(blocks, c, chromosome)
	}
	return chains, regions, nil
}

// footprint returns the reference span covered by the blocks of every
// scaffold in c.
func footprint(blocks map[string]map[string][]synteny.Block, c chain.Chain, chromosome string) genomics.Region {
	var (
		region genomics.Region
		first  = true
	)
	for _, name := range c {
		for _, block := range blocks[name][chromosome] {
			if first {
				region, first = block.Reference(chromosome), false
				continue
			}
			region = region.Union(block.Reference(chromosome))
		}
	}
	return region
}
