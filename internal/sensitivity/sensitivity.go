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

// Package sensitivity provides the named threshold profiles used to filter
// and group alignment hits.  A profile is selected by the expected diversity
// between the query and reference genomes.
package sensitivity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is returned for unknown diversity levels and
// out-of-range thresholds.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Diversity levels, from most to least divergent.
const (
	Order   = "order"
	Family  = "family"
	Genus   = "genus"
	Species = "species"
)

// DefaultLevel is the level used when none is given.
const DefaultLevel = Order

// Profile holds the thresholds for one diversity level.
type Profile struct {
	// Level is the diversity level the profile was selected by.
	Level string
	// BinRadius is the bin width (in base pairs) used for repeat detection.
	BinRadius int64
	// MinChromosomes is the number of distinct chromosomes that marks a
	// reference bin as a cross-chromosome repeat.
	MinChromosomes int
	// MinHits is the number of hits that marks a bin as repetitive.
	MinHits int
	// MinSharePercent is the percentage of a scaffold's hits a chromosome
	// needs to be kept.
	MinSharePercent float64
	// MinBlockHits is the hit count a synteny block must exceed to be kept.
	MinBlockHits int
}

var profiles = map[string]Profile{
	Order:   {Order, 1e3, 3, 5, 3, 5},
	Family:  {Family, 1e4, 3, 4, 5, 5},
	Genus:   {Genus, 1e5, 2, 4, 3, 5},
	Species: {Species, 1e6, 2, 3, 1, 5},
}

// Levels returns the known diversity levels, from most to least divergent.
func Levels() []string {
	return []string{Order, Family, Genus, Species}
}

// Lookup returns the profile for level.  Level names are case insensitive.
func Lookup(level string) (Profile, error) {
	profile, ok := profiles[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown diversity level %q (want one of %s)",
			ErrInvalidConfiguration, level, strings.Join(Levels(), ", "))
	}
	return profile, nil
}

// Overrides replaces individual thresholds of a profile.  Zero fields leave
// the profile's value in place.
type Overrides struct {
	BinRadius       int64
	MinChromosomes  int
	MinHits         int
	MinSharePercent float64
	MinBlockHits    int
}

// With returns a copy of profile with the non-zero overrides applied.
func (profile Profile) With(o Overrides) (Profile, error) {
	if o.BinRadius < 0 || o.MinChromosomes < 0 || o.MinHits < 0 || o.MinSharePercent < 0 || o.MinBlockHits < 0 {
		return Profile{}, fmt.Errorf("%w: negative threshold override", ErrInvalidConfiguration)
	}
	if o.MinSharePercent > 100 {
		return Profile{}, fmt.Errorf("%w: minimum share %v exceeds 100%%", ErrInvalidConfiguration, o.MinSharePercent)
	}
	if o.BinRadius != 0 {
		profile.BinRadius = o.BinRadius
	}
	if o.MinChromosomes != 0 {
		profile.MinChromosomes = o.MinChromosomes
	}
	if o.MinHits != 0 {
		profile.MinHits = o.MinHits
	}
	if o.MinSharePercent != 0 {
		profile.MinSharePercent = o.MinSharePercent
	}
	if o.MinBlockHits != 0 {
		profile.MinBlockHits = o.MinBlockHits
	}
	return profile, nil
}

func (profile Profile) String() string {
	return fmt.Sprintf("[level:%s, bin:%d, chromosomes:%d, hits:%d, share:%v%%, block:%d]",
		profile.Level, profile.BinRadius, profile.MinChromosomes, profile.MinHits,
		profile.MinSharePercent, profile.MinBlockHits)
}
