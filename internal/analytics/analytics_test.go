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

package analytics

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"sync"
	"testing"
)

func fakeBackend(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("UA-TEST123", "0001-0002-0003-0004")
	client.endpoint = server.URL
	client.httpClient = server.Client()
	return client
}

func TestClient_Send_Batches(t *testing.T) {
	testCases := []struct {
		name     string
		hits     int
		requests int
	}{
		{"none", 0, 0},
		{"partial batch", 5, 1},
		{"exact batches", defaultBatchSize * 4, 4},
		{"trailing batch", defaultBatchSize*2 + 1, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var requests int
			client := fakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				requests++
				w.WriteHeader(http.StatusOK)
			})

			var hits []Hit
			for i := 0; i < tc.hits; i++ {
				hits = append(hits, Event(CategorySynteny, "test", "", nil))
			}
			if err := client.Send(context.Background(), hits); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if got, want := requests, tc.requests; got != want {
				t.Errorf("Wrong number of requests: got %d, want %d", got, want)
			}
		})
	}
}

func TestClient_Send_VerifyPayloads(t *testing.T) {
	var payloads []string
	client := fakeBackend(t, func(w http.ResponseWriter, req *http.Request) {
		scanner := bufio.NewScanner(req.Body)
		for scanner.Scan() {
			payloads = append(payloads, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	var hits []Hit
	for i := 0; i < 10; i++ {
		hits = append(hits, Count(CategoryBlocks, "Blocks Count", i))
	}
	if err := client.Send(context.Background(), hits); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got, want := len(payloads), len(hits); got != want {
		t.Fatalf("Wrong number of payloads: got %d, want %d", got, want)
	}

	for i, payload := range payloads {
		got, err := url.ParseQuery(payload)
		if err != nil {
			t.Errorf("Failed to parse payload: %q: %v", payload, err)
		}

		want := url.Values{
			"v":   []string{"1"},
			"cid": []string{client.clientID},
			"tid": []string{client.propertyID},
		}
		for key, value := range hits[i] {
			want.Add(key, value)
		}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Wrong payload for hit %d: got %v, want %v", i, got, want)
		}
	}
}

func TestClient_Send_ErrorStatus(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if err := client.Send(context.Background(), []Hit{Event(CategorySynteny, "test", "", nil)}); err == nil {
		t.Error("Send succeeded against a failing backend")
	}
}

func TestClient_Send_Cancelled(t *testing.T) {
	client := fakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Send(ctx, []Hit{Event(CategorySynteny, "test", "", nil)}); err == nil {
		t.Error("Send succeeded with a cancelled context")
	}
}

func TestEvent_TypeParameter(t *testing.T) {
	if got, want := Event(CategorySynteny, "test", "", nil)["t"], "event"; got != want {
		t.Errorf("Wrong hit type: got %q, want %q", got, want)
	}
}

func TestEvent_OptionalParameters(t *testing.T) {
	if _, ok := Event(CategorySynteny, "test", "", nil)["el"]; ok {
		t.Error("Label parameter was added for empty label")
	}
	if _, ok := Event(CategorySynteny, "test", "", nil)["ev"]; ok {
		t.Error("Value parameter was added for nil value")
	}
}

func TestEvent_Values(t *testing.T) {
	testcases := []struct {
		name  string
		value int64
		want  string
	}{
		{"zero", 0, "0"},
		{"maximum", math.MaxInt64, strconv.Itoa(math.MaxInt64)},
		{"minimum", math.MinInt64, strconv.Itoa(math.MinInt64)},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Event(CategorySynteny, "test", "", &tc.value)["ev"]; got != tc.want {
				t.Fatalf("Wrong value: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCount(t *testing.T) {
	hit := Count(CategorySynteny, "Chains Count", 7)
	if got, want := hit["ev"], "7"; got != want {
		t.Errorf("Wrong value: got %q, want %q", got, want)
	}
	if got, want := hit["ea"], "Chains Count"; got != want {
		t.Errorf("Wrong action: got %q, want %q", got, want)
	}
}

func TestTrackingHandler(t *testing.T) {
	want := []Hit{
		Event(CategorySynteny, "test", "a", nil),
		Event(CategorySynteny, "test", "b", nil),
	}

	handler := http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		track := TrackerFromContext(req.Context())
		for i := range want {
			track(want[i])
		}
	})

	var invoked bool
	tracker := func(got []Hit) {
		if len(got) != len(want) {
			t.Fatalf("Wrong number of hits: got %d, want %d", len(got), len(want))
		}
		for i := range want {
			if !reflect.DeepEqual(got[i], want[i]) {
				t.Errorf("Hit %d: got %v, want %v", i, got[i], want[i])
			}
		}
		invoked = true
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	TrackingHandler(handler, tracker).ServeHTTP(w, req)

	if !invoked {
		t.Error("tracker function was not invoked")
	}
}

func TestTrackingHandler_NoHits(t *testing.T) {
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	tracker := func(hits []Hit) {
		t.Errorf("tracker invoked with %d hits", len(hits))
	}

	w := httptest.NewRecorder()
	TrackingHandler(handler, tracker).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
}

func TestTrackingHandler_ConcurrentHits(t *testing.T) {
	const n = 50
	handler := http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		track := TrackerFromContext(req.Context())
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				track(Event(CategorySynteny, "test", fmt.Sprintf("%d", i), nil))
			}(i)
		}
		wg.Wait()
	})

	var got int
	w := httptest.NewRecorder()
	TrackingHandler(handler, func(hits []Hit) { got = len(hits) }).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	if got != n {
		t.Errorf("Wrong number of hits: got %d, want %d", got, n)
	}
}

func TestTrackerFromContext_WithEmptyContextIsNotNil(t *testing.T) {
	ctx := context.Background()
	track := TrackerFromContext(ctx)
	if track == nil {
		t.Fatal("TrackerFromContext returned nil")
	}
	track(Event(CategorySynteny, "test", "", nil))
}
