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

// Package synteny groups the hits of one scaffold on one chromosome into
// collinear synteny blocks.
package synteny

import (
	"fmt"

	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
)

// Orientation describes how the query axis runs along the reference axis
// within a block.
type Orientation int

const (
	// Forward blocks have query coordinates increasing with the reference.
	Forward Orientation = iota
	// Reverse blocks have query coordinates decreasing with the reference.
	Reverse
)

func (o Orientation) String() string {
	if o == Reverse {
		return "-"
	}
	return "+"
}

// MarshalText encodes the orientation as "+" or "-".
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Block is a run of collinear hits.  Both ranges are closed and normalized so
// that RefStart <= RefEnd and QueryStart <= QueryEnd; the direction of the
// alignment is carried by Orientation.
type Block struct {
	RefStart   int64       `json:"ref_start"`
	RefEnd     int64       `json:"ref_end"`
	QueryStart int64       `json:"query_start"`
	QueryEnd   int64       `json:"query_end"`
	Hits       int         `json:"hit_count"`
	Strand     Orientation `json:"orientation"`
}

// newBlock builds the block spanning first to last, where first precedes last
// in reference order.
func newBlock(first, last genomics.HitPair, hits int) Block {
	block := Block{
		RefStart:   first.Reference,
		RefEnd:     last.Reference,
		QueryStart: first.Query,
		QueryEnd:   last.Query,
		Hits:       hits,
	}
	if block.RefStart > block.RefEnd {
		block.RefStart, block.RefEnd = block.RefEnd, block.RefStart
	}
	if block.QueryStart > block.QueryEnd {
		block.QueryStart, block.QueryEnd = block.QueryEnd, block.QueryStart
		block.Strand = Reverse
	}
	return block
}

// RefSpan returns the number of reference base pairs between the first and
// last hit of the block.
func (b Block) RefSpan() int64 {
	return b.RefEnd - b.RefStart
}

// Reference returns the block's footprint on chromosome.
func (b Block) Reference(chromosome string) genomics.Region {
	return genomics.NewRegion(chromosome, b.RefStart, b.RefEnd)
}

// Density returns the average number of reference base pairs per hit.
func (b Block) Density() float64 {
	return float64(b.RefSpan()) / float64(b.Hits)
}

func (b Block) String() string {
	return fmt.Sprintf("[ref:%d-%d, query:%d-%d%s, count=%d]",
		b.RefStart, b.RefEnd, b.QueryStart, b.QueryEnd, b.Strand, b.Hits)
}
