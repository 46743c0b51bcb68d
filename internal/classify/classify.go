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

// Package classify decides, for one scaffold and one target chromosome,
// whether material from other chromosomes flanks the scaffold's target
// blocks.
package classify

import (
	"errors"
	"fmt"

	"github.com/igcbioinformatics/Syn2Chr/internal/synteny"
)

// ErrNoTargetBlocks is returned when the scaffold has no blocks on the target
// chromosome.  Callers must only classify scaffolds placed on the target.
var ErrNoTargetBlocks = errors.New("scaffold has no blocks on target chromosome")

// Classification describes whether and where a scaffold may be extended into
// a neighbouring chromosome's territory.
type Classification int

const (
	// Continue means the target chromosome covers the scaffold's whole
	// matched extent.
	Continue Classification = iota
	// Left means other chromosomes flank the target on the high query side.
	Left
	// Right means other chromosomes flank the target on the low query side.
	Right
	// Stop means other chromosomes flank the target on both sides.
	Stop
)

var names = [...]string{"continue", "left", "right", "stop"}

func (c Classification) String() string {
	if c < 0 || int(c) >= len(names) {
		return fmt.Sprintf("Classification(%d)", int(c))
	}
	return names[c]
}

// MarshalText encodes the classification by name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type extent struct {
	min, max int64
	set      bool
}

func (e *extent) add(block synteny.Block) {
	if !e.set || block.QueryStart < e.min {
		e.min = block.QueryStart
	}
	if !e.set || block.QueryEnd > e.max {
		e.max = block.QueryEnd
	}
	e.set = true
}

// Classify returns the classification of a scaffold on target, given the
// scaffold's blocks keyed by chromosome.  Chromosomes with no blocks are
// ignored.
func Classify(blocks map[string][]synteny.Block, target string) (Classification, error) {
	if len(blocks[target]) == 0 {
		return 0, fmt.Errorf("classifying on %q: %w", target, ErrNoTargetBlocks)
	}

	var overall, onTarget extent
	touched := 0
	for chromosome, list := range blocks {
		if len(list) == 0 {
			continue
		}
		touched++
		for _, block := range list {
			overall.add(block)
			if chromosome == target {
				onTarget.add(block)
			}
		}
	}
	if touched == 1 {
		return Continue, nil
	}

	minShared := onTarget.min == overall.min
	maxShared := onTarget.max == overall.max
	switch {
	case minShared && maxShared:
		return Continue, nil
	case !minShared && !maxShared:
		return Stop, nil
	case !minShared:
		return Right, nil
	default:
		return Left, nil
	}
}
