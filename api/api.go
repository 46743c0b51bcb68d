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

// Package api implements an HTTP API that infers scaffold chains from hit
// tables held in object storage.
//
// Two endpoints are provided:
//
//	GET /synteny/{bucket}/{object}?diversity=&evalue=&chromosome=
//	GET /blocks/{bucket}/{object}?scaffold=&diversity=&evalue=&noise_suppress=
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/igcbioinformatics/Syn2Chr/internal/analytics"
	"github.com/igcbioinformatics/Syn2Chr/internal/blast"
	"github.com/igcbioinformatics/Syn2Chr/internal/logging"
	"github.com/igcbioinformatics/Syn2Chr/internal/pipeline"
	"github.com/igcbioinformatics/Syn2Chr/internal/sensitivity"
	"github.com/igcbioinformatics/Syn2Chr/internal/source"
	"github.com/igcbioinformatics/Syn2Chr/internal/synteny"
)

const (
	syntenyPath = "/synteny/:bucket/*object"
	blocksPath  = "/blocks/:bucket/*object"

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	// DefaultExponent is the E-value cutoff exponent used when a request
	// does not specify one.
	DefaultExponent = 200
)

var errUnknownScaffold = errors.New("scaffold has no hits")

// NewStorageClientFunc is the type of function that constructs the appropriate
// storage client to satisfy the incoming request.
type NewStorageClientFunc func(*http.Request) (source.Client, error)

// Options configures a Server.
type Options struct {
	// Workers bounds the number of chromosomes chained concurrently for one
	// request.  Zero means GOMAXPROCS.
	Workers int
}

// Server provides the synteny API.  Must be created with NewServer.
type Server struct {
	newStorageClient NewStorageClientFunc
	options          Options
	whitelist        map[string]bool
}

// NewServer returns a new Server configured to use newStorageClient.  The
// server will call newStorageClient on each request to determine which
// storage client to use.
func NewServer(newStorageClient NewStorageClientFunc, options Options) *Server {
	return &Server{newStorageClient, options, make(map[string]bool)}
}

// Whitelist adds buckets to the set of buckets which the server is allowed to
// access. If Whitelist is never called for a given Server then reads from any
// bucket are allowed.
func (server *Server) Whitelist(buckets []string) {
	for _, bucket := range buckets {
		if bucket = strings.TrimSpace(bucket); bucket != "" {
			server.whitelist[bucket] = true
		}
	}
}

// Export registers the API endpoints and their middleware with router.
func (server *Server) Export(router *gin.Engine) {
	router.Use(requestID, accessLog, forwardOrigin)
	router.GET(syntenyPath, server.serveSynteny)
	router.GET(blocksPath, server.serveBlocks)
}

type syntenyQuery struct {
	Diversity   string   `form:"diversity"`
	Exponent    *int     `form:"evalue" binding:"omitempty,min=0,max=400"`
	Chromosomes []string `form:"chromosome"`
}

type blocksQuery struct {
	Scaffold      string `form:"scaffold" binding:"required"`
	Diversity     string `form:"diversity"`
	Exponent      *int   `form:"evalue" binding:"omitempty,min=0,max=400"`
	NoiseSuppress bool   `form:"noise_suppress"`
}

type chainJSON struct {
	Scaffolds []string `json:"scaffolds"`
	Start     int64    `json:"start"`
	End       int64    `json:"end"`
}

func exponent(e *int) int {
	if e == nil {
		return DefaultExponent
	}
	return *e
}

func (server *Server) serveSynteny(c *gin.Context) {
	track := analytics.TrackerFromContext(c.Request.Context())
	track(analytics.Event(analytics.CategorySynteny, "Synteny Request Received", "", nil))
	fail := func(err error) {
		if !isApiError(err) {
			track(analytics.Event(analytics.CategorySynteny, "Synteny Internal Error", "", nil))
		}
		writeError(c, err)
	}

	var query syntenyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(newInvalidInputError("parsing query", err))
		return
	}

	profile, err := lookupProfile(query.Diversity)
	if err != nil {
		fail(err)
		return
	}

	records, err := server.readHits(c)
	if err != nil {
		fail(err)
		return
	}

	result, err := pipeline.Run(c.Request.Context(), records, pipeline.Options{
		Profile:     profile,
		Filter:      blast.Cutoff(exponent(query.Exponent)),
		Chromosomes: query.Chromosomes,
		Workers:     server.options.Workers,
		Logger:      logging.C(c.Request.Context()),
	})
	if err != nil {
		fail(fmt.Errorf("building synteny: %v", err))
		return
	}

	var count int
	chromosomes := make(map[string][]chainJSON, len(result.Chromosomes))
	for _, name := range result.Chromosomes {
		chains := make([]chainJSON, 0, len(result.Chains[name]))
		for i, chain := range result.Chains[name] {
			region := result.Regions[name][i]
			chains = append(chains, chainJSON{chain, region.Start, region.End})
		}
		chromosomes[name] = chains
		count += len(chains)
	}
	track(analytics.Count(analytics.CategorySynteny, "Chains Count", count))
	track(analytics.Event(analytics.CategorySynteny, "Synteny Response Sent", "", nil))

	c.JSON(http.StatusOK, gin.H{
		"synteny": gin.H{
			"diversity":   profile.Level,
			"evalue":      exponent(query.Exponent),
			"chromosomes": chromosomes,
		}})
}

func (server *Server) serveBlocks(c *gin.Context) {
	track := analytics.TrackerFromContext(c.Request.Context())
	track(analytics.Event(analytics.CategoryBlocks, "Blocks Request Received", "", nil))
	fail := func(err error) {
		if !isApiError(err) {
			track(analytics.Event(analytics.CategoryBlocks, "Blocks Internal Error", "", nil))
		}
		writeError(c, err)
	}

	var query blocksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(newInvalidInputError("parsing query", err))
		return
	}

	profile, err := lookupProfile(query.Diversity)
	if err != nil {
		fail(err)
		return
	}

	records, err := server.readHits(c)
	if err != nil {
		fail(err)
		return
	}

	maps := pipeline.FilterRepeats(pipeline.BuildHitMaps(records, blast.Cutoff(exponent(query.Exponent))), profile)
	hits, ok := maps[query.Scaffold]
	if !ok {
		fail(newNotFoundError(fmt.Sprintf("looking up %q", query.Scaffold), errUnknownScaffold))
		return
	}

	blocks := pipeline.Blocks(hits, profile, query.NoiseSuppress)
	if blocks == nil {
		blocks = make(map[string][]synteny.Block)
	}
	var count int
	for _, b := range blocks {
		count += len(b)
	}
	track(analytics.Count(analytics.CategoryBlocks, "Blocks Count", count))
	track(analytics.Event(analytics.CategoryBlocks, "Blocks Response Sent", "", nil))
	c.JSON(http.StatusOK, gin.H{
		"blocks": gin.H{
			"scaffold":       query.Scaffold,
			"diversity":      profile.Level,
			"noise_suppress": query.NoiseSuppress,
			"chromosomes":    blocks,
		}})
}

// readHits resolves the bucket and object of the request and reads the hit
// table they name.
func (server *Server) readHits(c *gin.Context) ([]blast.Record, error) {
	bucket, object, err := source.ParseID(c.Param("bucket") + c.Param("object"))
	if err != nil {
		return nil, newInvalidInputError("parsing hit table ID", err)
	}

	if err := server.checkWhitelist(bucket); err != nil {
		return nil, newPermissionDeniedError("checking whitelist", err)
	}

	client, err := server.newStorageClient(c.Request)
	if err != nil {
		return nil, newStorageError("creating client", err)
	}

	ctx := c.Request.Context()
	data, err := source.Open(ctx, client, bucket, object)
	if err != nil {
		return nil, newStorageError("opening data", err)
	}
	defer data.Close()

	records, err := blast.ReadAll(data)
	if err != nil {
		if errors.Is(err, blast.ErrMalformedRecord) {
			return nil, newInvalidInputError("reading hit table", err)
		}
		return nil, newStorageError("reading hit table", err)
	}
	logging.C(ctx).Debug().
		Str("bucket", bucket).
		Str("object", object).
		Int("records", len(records)).
		Msg("read hit table")
	return records, nil
}

func lookupProfile(diversity string) (sensitivity.Profile, error) {
	if diversity == "" {
		diversity = sensitivity.DefaultLevel
	}
	profile, err := sensitivity.Lookup(diversity)
	if err != nil {
		return sensitivity.Profile{}, newInvalidConfigurationError("resolving diversity", err)
	}
	return profile, nil
}

func (server *Server) checkWhitelist(bucket string) error {
	if len(server.whitelist) == 0 || server.whitelist[bucket] {
		return nil
	}
	return fmt.Errorf("access to bucket %s is not allowed", bucket)
}

// apiError is used to capture errors that have been defined in the API.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func isApiError(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr)
}

func newApiError(name string, code int, context string, err error) error {
	return &apiError{name, code, fmt.Errorf("%s: %v", context, err)}
}

func newInvalidAuthenticationError(context string, err error) error {
	return newApiError("InvalidAuthentication", http.StatusUnauthorized, context, err)
}

func newInvalidConfigurationError(context string, err error) error {
	return newApiError("InvalidConfiguration", http.StatusBadRequest, context, err)
}

func newInvalidInputError(context string, err error) error {
	return newApiError("InvalidInput", http.StatusBadRequest, context, err)
}

func newPermissionDeniedError(context string, err error) error {
	return newApiError("PermissionDenied", http.StatusForbidden, context, err)
}

func newNotFoundError(context string, err error) error {
	return newApiError("NotFound", http.StatusNotFound, context, err)
}

func newStorageError(context string, err error) error {
	switch {
	case errors.Is(err, source.ErrMissingOrInvalidToken):
		return newInvalidAuthenticationError(context, err)
	case errors.Is(err, source.ErrInvalidID):
		return newInvalidInputError(context, err)
	case errors.Is(err, source.ErrNotFound):
		return newNotFoundError(context, err)
	case errors.Is(err, source.ErrUnauthenticated):
		return newInvalidAuthenticationError(context, err)
	case errors.Is(err, source.ErrPermissionDenied):
		return newPermissionDeniedError(context, err)
	}
	return fmt.Errorf("%s: %v", context, err)
}

// writeError writes either a JSON object or bare HTTP error describing err.
// A JSON object is written only when the error has a name and code defined
// by the API.
func writeError(c *gin.Context, err error) {
	log := logging.C(c.Request.Context())

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		log.Warn().Err(err).Msg("request failed")
		c.JSON(apiErr.code, gin.H{
			"error":   apiErr.name,
			"message": fmt.Sprintf("%s: %v", http.StatusText(apiErr.code), apiErr.cause),
		})
		return
	}

	log.Error().Err(err).Msg("request failed")
	code := http.StatusInternalServerError
	c.String(code, "%s: %v", http.StatusText(code), err)
}

// requestID honours an incoming request ID or generates one, echoes it in
// the response and attaches it to the request context.
func requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Header(RequestIDHeader, id)
	c.Request = c.Request.WithContext(logging.WithRequest(c.Request.Context(), id))
	c.Next()
}

func accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	elapsed := time.Since(start)
	log := logging.C(c.Request.Context())
	event := log.Info()
	if elapsed >= 5*time.Second {
		event = log.Warn()
	}
	event.Int("status", c.Writer.Status()).
		Dur("elapsed", elapsed).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request done")
}

func forwardOrigin(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
	}
	c.Next()
}
