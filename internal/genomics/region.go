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

// Package genomics contains definitions related to genomic coordinates shared
// by the synteny packages.
package genomics

import "fmt"

// Region defines a span of a reference chromosome.
type Region struct {
	// Chromosome is the case-normalized reference chromosome name.
	Chromosome string
	// Start and End specify the closed range (in base pairs) relative to the
	// chromosome.  Start is never greater than End.
	Start, End int64
}

// NewRegion returns the Region covering both a and b on chromosome, whichever
// order they are given in.
func NewRegion(chromosome string, a, b int64) Region {
	if a > b {
		a, b = b, a
	}
	return Region{Chromosome: chromosome, Start: a, End: b}
}

// Union returns the smallest region covering both region and other.  Both
// must refer to the same chromosome.
func (region Region) Union(other Region) Region {
	if other.Start < region.Start {
		region.Start = other.Start
	}
	if other.End > region.End {
		region.End = other.End
	}
	return region
}

func (region Region) String() string {
	return fmt.Sprintf("[chromosome:%s, start:%d, end:%d]", region.Chromosome, region.Start, region.End)
}
