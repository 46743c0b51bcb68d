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

// This binary provides a synteny API client that supports Google
// authentication.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"io"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/igcbioinformatics/Syn2Chr/internal/logging"
)

const (
	scope = "https://www.googleapis.com/auth/devstorage.read_only"
)

var (
	chromosome = flag.String("c", "", "chromosome name")
	diversity  = flag.String("d", "", "diversity level (default is the server's)")
	output     = flag.String("o", "", "output filename")
)

func main() {
	flag.Parse()

	logging.Init(logging.Options{Level: "info", Format: "console"})
	logger := logging.Named("client")

	w := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatal().Err(err).Str("output", *output).Msg("Failed to open output file")
		}
		defer f.Close()

		w = f
	}

	ctx := context.Background()

	// For compatibility with other tools, read the standard cURL certificate
	// authority override from the environment.
	if bundle := os.Getenv("CURL_CA_BUNDLE"); bundle != "" {
		pem, err := os.ReadFile(bundle)
		if err != nil {
			logger.Fatal().Err(err).Str("bundle", bundle).Msg("Failed to read CA override file")
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize system certificate pool")
		}
		if !pool.AppendCertsFromPEM(pem) {
			logger.Fatal().Str("bundle", bundle).Msg("Failed to add certificates from bundle")
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: pool,
				}},
		})
		logger.Info().Str("bundle", bundle).Msg("Using CA override bundle")
	}

	client, err := google.DefaultClient(ctx, scope)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create client")
	}

	params := map[string]string{"chromosome": *chromosome, "diversity": *diversity}
	if err := fetchAll(client, flag.Args(), params, w, logger); err != nil {
		logger.Fatal().Err(err).Msg("Request failed")
	}
}
