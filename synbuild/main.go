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

// This binary infers scaffold chains from a BLAST tabular hit table read from
// a local file or from Google Cloud Storage.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/profile"

	"github.com/igcbioinformatics/Syn2Chr/internal/bgzf"
	"github.com/igcbioinformatics/Syn2Chr/internal/blast"
	"github.com/igcbioinformatics/Syn2Chr/internal/logging"
	"github.com/igcbioinformatics/Syn2Chr/internal/pipeline"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
	"github.com/igcbioinformatics/Syn2Chr/internal/source"
)

var (
	diversity  = flag.String("d", sensitivity.DefaultLevel, "diversity level between query and reference ("+strings.Join(sensitivity.Levels(), "/")+")")
	exponent   = flag.Int("e", 200, "E-value cutoff exponent: keep hits with E <= 1e-N or E == 0")
	chromosome = flag.String("c", "", "if set, restricts chain building to a comma-separated list of chromosomes")
	summary    = flag.Bool("b", false, "write a summary of the filtered hit table instead of chains")
	output     = flag.String("o", "", "output filename (bgzip-compressed when it ends in .gz)")
	format     = flag.String("format", "tsv", "chain output format (json or tsv)")
	workers    = flag.Int("workers", 0, "number of chromosomes chained concurrently (0 means GOMAXPROCS)")

	binRadius      = flag.Int64("bin_radius", 0, "override the repeat bin radius in bp")
	minChromosomes = flag.Int("min_chromosomes", 0, "override the distinct chromosomes marking a cross-chromosome repeat")
	minHits        = flag.Int("min_hits", 0, "override the hits marking a repeat bin")
	minShare       = flag.Float64("min_share", 0, "override the minimum chromosome share in percent")
	minBlockHits   = flag.Int("min_block_hits", 0, "override the hits a block must exceed")

	logLevel   = flag.String("log_level", "info", "log level (trace, debug, info, warn, error)")
	logFormat  = flag.String("log_format", "console", "log format (console or json)")
	cpuProfile = flag.String("cpuprofile", "", "if set, write a CPU profile to this directory")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <hits.tsv|hits.tsv.gz|gs://bucket/object>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *format != "json" && *format != "tsv" {
		log.Fatalf("Unsupported -format %q: must be json or tsv.", *format)
	}

	profileLevel, err := sensitivity.Lookup(*diversity)
	if err != nil {
		log.Fatalf("Invalid -d: %v", err)
	}
	profileLevel, err = profileLevel.With(sensitivity.Overrides{
		BinRadius:       *binRadius,
		MinChromosomes:  *minChromosomes,
		MinHits:         *minHits,
		MinSharePercent: *minShare,
		MinBlockHits:    *minBlockHits,
	})
	if err != nil {
		log.Fatalf("Invalid threshold override: %v", err)
	}

	logging.Init(logging.Options{Level: *logLevel, Format: *logFormat})
	logger := logging.Named("synbuild")

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile), profile.Quiet).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records, err := readRecords(ctx, flag.Arg(0))
	if err != nil {
		logger.Fatal().Err(err).Str("input", flag.Arg(0)).Msg("Failed to read hit table")
	}
	logger.Info().Int("records", len(records)).Str("profile", profileLevel.String()).Msg("Read hit table")

	if *summary {
		filtered := pipeline.FilterRepeats(pipeline.BuildHitMaps(records, blast.Cutoff(*exponent)), profileLevel)
		if err := writeOutput(*output, pipeline.Summarize(records, filtered, profileLevel).WriteText); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write summary")
		}
		return
	}

	var chromosomes []string
	if *chromosome != "" {
		chromosomes = strings.Split(*chromosome, ",")
	}
	result, err := pipeline.Run(ctx, records, pipeline.Options{
		Profile:     profileLevel,
		Filter:      blast.Cutoff(*exponent),
		Chromosomes: chromosomes,
		Workers:     *workers,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build synteny")
	}

	write := result.WriteTSV
	if *format == "json" {
		write = func(w io.Writer) error { return writeJSON(w, result) }
	}
	if err := writeOutput(*output, write); err != nil {
		logger.Fatal().Err(err).Str("output", *output).Msg("Failed to write chains")
	}
}

// writeOutput runs write against standard output or the named file.  A name
// ending in .gz is written as BGZF.
func writeOutput(name string, write func(io.Writer) error) error {
	if name == "" {
		return write(os.Stdout)
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	data := buf.Bytes()
	if strings.HasSuffix(name, ".gz") {
		var err error
		if data, err = bgzf.Encode(data); err != nil {
			return fmt.Errorf("compressing %s: %v", name, err)
		}
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %v", name, err)
	}
	return nil
}

// readRecords reads the hit table at name, which is either a local path or a
// gs:// URI.
func readRecords(ctx context.Context, name string) ([]blast.Record, error) {
	var (
		client         source.Client
		bucket, object string
	)
	if source.IsURI(name) {
		var err error
		if bucket, object, err = source.ParseURI(name); err != nil {
			return nil, err
		}
		if client, err = source.NewDefaultClient(nil); err != nil {
			return nil, err
		}
	} else {
		client = source.DirectoryClient{Root: filepath.Dir(name)}
		object = filepath.Base(name)
	}

	data, err := source.Open(ctx, client, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer data.Close()

	records, err := blast.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return records, nil
}

func writeJSON(w io.Writer, result *pipeline.Result) error {
	type chain struct {
		Scaffolds []string `json:"scaffolds"`
		Start     int64    `json:"start"`
		End       int64    `json:"end"`
	}
	chromosomes := make(map[string][]chain, len(result.Chromosomes))
	for _, name := range result.Chromosomes {
		chains := make([]chain, 0, len(result.Chains[name]))
		for i, c := range result.Chains[name] {
			region := result.Regions[name][i]
			chains = append(chains, chain{c, region.Start, region.End})
		}
		chromosomes[name] = chains
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"diversity":   result.Profile.Level,
		"profile":     result.Profile,
		"chromosomes": chromosomes,
	})
}
