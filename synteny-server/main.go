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

// This binary provides a synteny server that backs onto hit tables in GCS or
// in a local directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/igcbioinformatics/Syn2Chr/api"
	"github.com/igcbioinformatics/Syn2Chr/internal/analytics"
	"github.com/igcbioinformatics/Syn2Chr/internal/logging"
	"github.com/igcbioinformatics/Syn2Chr/internal/source"
)

var (
	port = flag.Int("port", 80, "HTTP service port")

	secure    = flag.Bool("secure", false, "serve in HTTPS-only mode and forward client bearer tokens")
	httpsCert = flag.String("https_cert", "", "HTTPS certificate file")
	httpsKey  = flag.String("https_key", "", "HTTPS key file")

	buckets   = flag.String("buckets", "", "if set, restricts reads to a comma-separated list of buckets")
	directory = flag.String("directory", "", "if set, serves hit tables from this directory instead of GCS")
	workers   = flag.Int("workers", 0, "number of chromosomes chained concurrently per request (0 means GOMAXPROCS)")

	// Enable or disable anonymous usage tracking.
	trackUsage = flag.Bool("track_usage", false, "anonymous usage tracking")
	trackingID = flag.String("tracking_id", "", "Google Analytics property ID receiving usage hits")

	logLevel  = flag.String("log_level", "info", "log level (trace, debug, info, warn, error)")
	logFormat = flag.String("log_format", "json", "log format (console or json)")
)

func main() {
	flag.Parse()

	if *secure && (*httpsCert == "" || *httpsKey == "") {
		log.Fatalf("You must specify both -https_cert and -https_key in secure mode.")
	}
	if *trackUsage && *trackingID == "" {
		log.Fatalf("You must specify -tracking_id with -track_usage.")
	}
	if *secure && *directory != "" {
		log.Fatalf("-secure forwards bearer tokens to GCS and cannot be combined with -directory.")
	}

	logging.Init(logging.Options{Level: *logLevel, Format: *logFormat})
	logger := logging.Named("server")

	newStorageClient := api.NewStorageClientFunc(source.NewPublicClient)
	switch {
	case *secure:
		newStorageClient = source.NewClientFromBearerToken
	case *directory != "":
		client := source.DirectoryClient{Root: *directory}
		newStorageClient = func(*http.Request) (source.Client, error) {
			return client, nil
		}
		logger.Info().Str("directory", *directory).Msg("Serving hit tables from local directory")
	}

	server := api.NewServer(newStorageClient, api.Options{Workers: *workers})
	if *buckets != "" {
		server.Whitelist(strings.Split(*buckets, ","))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	server.Export(router)

	handler := router.Handler()
	if *trackUsage {
		logger.Info().Str("tracking_id", *trackingID).Msg("Enabling anonymous usage tracking")

		client := analytics.NewClient(*trackingID, uuid.New().String())
		handler = analytics.TrackingHandler(handler, func(hits []analytics.Hit) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Send(ctx, hits); err != nil {
				logger.Warn().Err(err).Int("hits", len(hits)).Msg("Failed to send hits to analytics")
			}
		})
	}

	address := fmt.Sprintf(":%d", *port)
	logger.Info().Str("address", address).Bool("secure", *secure).Msg("Listening")
	if *secure {
		if err := http.ListenAndServeTLS(address, *httpsCert, *httpsKey, handler); err != nil {
			logger.Fatal().Err(err).Msg("HTTPS server returned an error")
		}
	} else {
		if err := http.ListenAndServe(address, handler); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server returned an error")
		}
	}
}
