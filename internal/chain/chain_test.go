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

package chain

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igcbioinformatics/Syn2Chr/internal/classify"
	"github.com/igcbioinformatics/Syn2Chr/internal/synteny"
)

func scaffold(name string, refStart, refEnd int64, class classify.Classification) Scaffold {
	return Scaffold{
		Name:  name,
		First: synteny.Block{RefStart: refStart, RefEnd: refEnd, Hits: 6},
		Class: class,
	}
}

func TestBuild(t *testing.T) {
	const (
		cont  = classify.Continue
		left  = classify.Left
		right = classify.Right
		stop  = classify.Stop
	)
	testCases := []struct {
		name      string
		scaffolds []Scaffold
		want      []Chain
	}{
		{"no scaffolds", nil, nil},
		{"single continue", []Scaffold{scaffold("a", 0, 100, cont)}, []Chain{{"a"}}},
		{"single left", []Scaffold{scaffold("a", 0, 100, left)}, []Chain{{"a"}}},
		{"single right", []Scaffold{scaffold("a", 0, 100, right)}, []Chain{{"a"}}},
		{"single stop", []Scaffold{scaffold("a", 0, 100, stop)}, []Chain{{"a"}}},
		{
			"contiguous run, given out of order",
			[]Scaffold{
				scaffold("c", 5000, 6000, cont),
				scaffold("a", 0, 1000, cont),
				scaffold("b", 2000, 3000, cont),
			},
			[]Chain{{"a", "b", "c"}},
		},
		{
			"large gap closes the chain",
			[]Scaffold{
				scaffold("a", 0, 1000, cont),
				scaffold("b", 2000, 3000, cont),
				scaffold("c", 40e6, 41e6, cont),
			},
			[]Chain{{"a", "b"}, {"c"}},
		},
		{
			"stop stands alone",
			[]Scaffold{
				scaffold("a", 0, 1000, cont),
				scaffold("b", 2000, 3000, stop),
				scaffold("c", 5000, 6000, cont),
			},
			[]Chain{{"a"}, {"b"}, {"c"}},
		},
		{
			"right before a start opens a new chain",
			[]Scaffold{
				scaffold("a", 0, 1000, cont),
				scaffold("b", 2000, 3000, right),
				scaffold("c", 5000, 6000, cont),
			},
			[]Chain{{"a"}, {"b", "c"}},
		},
		{
			"left before a start closes the chain",
			[]Scaffold{
				scaffold("a", 0, 1000, cont),
				scaffold("b", 2000, 3000, left),
				scaffold("c", 5000, 6000, cont),
			},
			[]Chain{{"a", "b"}, {"c"}},
		},
		{
			"right before an end closes the chain",
			[]Scaffold{
				scaffold("a", 0, 1000, right),
				scaffold("b", 500, 1100, cont),
				scaffold("c", 3000, 4000, cont),
			},
			[]Chain{{"a"}, {"b", "c"}},
		},
		{
			"left before an end opens a new chain",
			[]Scaffold{
				scaffold("a", 0, 1000, cont),
				scaffold("b", 1500, 2000, left),
				scaffold("c", 1600, 2100, cont),
				scaffold("d", 4000, 5000, cont),
			},
			[]Chain{{"a"}, {"b", "c", "d"}},
		},
		{
			"last scaffold right opens its own chain",
			[]Scaffold{
				scaffold("a", 0, 1000, cont),
				scaffold("b", 2000, 3000, right),
			},
			[]Chain{{"a"}, {"b"}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Build(tc.scaffolds))
		})
	}
}

func TestBuild_EveryScaffoldOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	classes := []classify.Classification{classify.Continue, classify.Left, classify.Right, classify.Stop}
	for trial := 0; trial < 100; trial++ {
		var (
			scaffolds []Scaffold
			want      []string
		)
		for i, n := 0, 1+rng.Intn(30); i < n; i++ {
			name := fmt.Sprintf("scaffold_%d", i)
			start := rng.Int63n(100e6)
			scaffolds = append(scaffolds, scaffold(name, start, start+rng.Int63n(5e6), classes[rng.Intn(len(classes))]))
			want = append(want, name)
		}

		var got []string
		for _, chain := range Build(scaffolds) {
			assert.NotEmpty(t, chain, "trial %d: empty chain", trial)
			got = append(got, chain...)
		}
		sort.Strings(got)
		sort.Strings(want)
		assert.Equal(t, want, got, "trial %d", trial)
	}
}
