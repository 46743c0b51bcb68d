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

package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/igcbioinformatics/Syn2Chr/internal/blast"
	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
	"github.com/igcbioinformatics/Syn2Chr/internal/synteny"
)

// Summary describes the scaffolds retained after filtering.
type Summary struct {
	Scaffolds      int               `json:"scaffolds"`
	MeanIdentity   float64           `json:"mean_identity"`
	MeanLength     float64           `json:"mean_length"`
	MeanMismatches float64           `json:"mean_mismatches"`
	MeanGapOpens   float64           `json:"mean_gap_opens"`
	Entries        []ScaffoldSummary `json:"entries"`
}

// ScaffoldSummary lists the retained hits of one scaffold.
type ScaffoldSummary struct {
	Name        string              `json:"name"`
	Hits        int                 `json:"hits"`
	Chromosomes []ChromosomeSummary `json:"chromosomes"`
}

// ChromosomeSummary lists the hits of a scaffold on one chromosome together
// with every block they form, sparse ones included.
type ChromosomeSummary struct {
	Chromosome string          `json:"chromosome"`
	Hits       int             `json:"hits"`
	Blocks     []synteny.Block `json:"blocks"`
}

// Summarize computes alignment statistics over the records of the scaffolds
// in filtered and lists their hits per chromosome.
func Summarize(records []blast.Record, filtered map[string]genomics.ScaffoldHitMap, profile sensitivity.Profile) Summary {
	var (
		summary                            Summary
		identity, length, mismatches, gaps float64
		count                              int
	)
	for _, record := range records {
		if _, ok := filtered[record.Query]; !ok {
			continue
		}
		identity += record.Identity
		length += float64(record.Length)
		mismatches += float64(record.Mismatches)
		gaps += float64(record.GapOpens)
		count++
	}
	if count > 0 {
		n := float64(count)
		summary.MeanIdentity = identity / n
		summary.MeanLength = length / n
		summary.MeanMismatches = mismatches / n
		summary.MeanGapOpens = gaps / n
	}

	names := make([]string, 0, len(filtered))
	for name := range filtered {
		names = append(names, name)
	}
	sort.Strings(names)

	summary.Scaffolds = len(names)
	for _, name := range names {
		hits := filtered[name]
		entry := ScaffoldSummary{Name: name, Hits: hits.Total()}
		for _, chromosome := range hits.Chromosomes() {
			entry.Chromosomes = append(entry.Chromosomes, ChromosomeSummary{
				Chromosome: chromosome,
				Hits:       len(hits[chromosome]),
				Blocks:     synteny.Group(hits[chromosome], profile, false),
			})
		}
		summary.Entries = append(summary.Entries, entry)
	}
	return summary
}

// WriteText writes s as a plain text report.
func (s Summary) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "### BLASTN statistics ###\n")
	fmt.Fprintf(bw, "Amount of scaffolds: %d\n", s.Scaffolds)
	fmt.Fprintf(bw, "Average similarity: %.2f%%\n", s.MeanIdentity)
	fmt.Fprintf(bw, "Average hit length: %.0f bp\n", s.MeanLength)
	fmt.Fprintf(bw, "Average mismatches: %.1f\n", s.MeanMismatches)
	fmt.Fprintf(bw, "Average gap openings: %.1f\n\n", s.MeanGapOpens)
	fmt.Fprintf(bw, "### list of filtered scaffolds ###\n")
	fmt.Fprintf(bw, "# scaffold\tblast hits\n# chr\thits/chr\tref_start\tref_end\tquery_start\tquery_end\n")
	for _, entry := range s.Entries {
		fmt.Fprintf(bw, "%s\t%d\n", entry.Name, entry.Hits)
		for _, c := range entry.Chromosomes {
			for _, b := range c.Blocks {
				fmt.Fprintf(bw, "%s\t%d\t%d\t%d\t%d\t%d\n", c.Chromosome, c.Hits, b.RefStart, b.RefEnd, b.QueryStart, b.QueryEnd)
			}
		}
	}
	return bw.Flush()
}

// WriteTSV writes one line per chain: the chromosome, the chain's position
// on it (counting from 1) and its comma-separated scaffold names.
func (r *Result) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, chromosome := range r.Chromosomes {
		for i, c := range r.Chains[chromosome] {
			fmt.Fprintf(bw, "%s\t%d\t%s\n", chromosome, i+1, strings.Join(c, ","))
		}
	}
	return bw.Flush()
}
