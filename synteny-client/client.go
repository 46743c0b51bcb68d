// Copyright 2017 Google Inc.
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

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/igcbioinformatics/Syn2Chr/internal/logging"
)

type chainsResponse struct {
	Synteny struct {
		Diversity   string `json:"diversity"`
		Chromosomes map[string][]struct {
			Scaffolds []string `json:"scaffolds"`
		} `json:"chromosomes"`
	} `json:"synteny"`
}

// write prints one line per chain: chromosome, chain number and the
// comma-separated scaffolds.
func (r *chainsResponse) write(w io.Writer) error {
	names := make([]string, 0, len(r.Synteny.Chromosomes))
	for name := range r.Synteny.Chromosomes {
		names = append(names, name)
	}
	sort.Strings(names)

	bw := bufio.NewWriter(w)
	for _, name := range names {
		for i, chain := range r.Synteny.Chromosomes[name] {
			fmt.Fprintf(bw, "%s\t%d\t%s\n", name, i+1, strings.Join(chain.Scaffolds, ","))
		}
	}
	return bw.Flush()
}

func addParameters(input string, params map[string]string) string {
	values := url.Values{}
	for name, value := range params {
		if value != "" {
			values.Set(name, value)
		}
	}
	if len(values) == 0 {
		return input
	}
	if strings.Contains(input, "?") {
		return input + "&" + values.Encode()
	}
	return input + "?" + values.Encode()
}

func fetchChains(client *http.Client, target string) (*chainsResponse, error) {
	resp, err := client.Get(target)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %v", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var chains chainsResponse
	if err := json.NewDecoder(resp.Body).Decode(&chains); err != nil {
		return nil, fmt.Errorf("decoding response: %v", err)
	}
	return &chains, nil
}

// fetchAll fetches the chains of every target in turn and writes them to w.
// It stops at the first failure.
func fetchAll(client *http.Client, targets []string, params map[string]string, w io.Writer, logger *logging.Logger) error {
	for _, target := range targets {
		target = addParameters(target, params)
		logger.Info().Str("url", target).Msg("Fetching")

		chains, err := fetchChains(client, target)
		if err != nil {
			return err
		}
		if err := chains.write(w); err != nil {
			return fmt.Errorf("writing chains: %v", err)
		}
		logger.Info().Int("chromosomes", len(chains.Synteny.Chromosomes)).Msg("Received chains")
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	v := make(map[string]string)
	if err := json.NewDecoder(resp.Body).Decode(&v); err == nil {
		if message, ok := v["message"]; ok {
			return fmt.Errorf("%s: %v", v["error"], message)
		}
	}
	return fmt.Errorf("unexpected response status: %q", resp.Status)
}
