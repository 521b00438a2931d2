package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/airbusgeo/eo-pipeline/service"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var ctx context.Context
var stacSrv, assetSrv *httptest.Server
var stac fakeStac

var assetContent = bytes.Repeat([]byte("B04"), 2000)

// fakeStac serves the features in a single page, or fails with status
type fakeStac struct {
	mu       sync.Mutex
	status   int
	features []map[string]interface{}
	searches int
	body     map[string]interface{} // of the last search
}

func (s *fakeStac) set(status int, features ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.features, s.searches, s.body = status, features, 0, nil
}

func (s *fakeStac) lastBody() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

func (s *fakeStac) nbSearches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

func (s *fakeStac) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	s.searches++
	s.body = nil
	if r.Method == http.MethodPost {
		json.NewDecoder(r.Body).Decode(&s.body)
	}
	if s.status != 0 && s.status != 200 {
		w.WriteHeader(s.status)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"type":     "FeatureCollection",
		"features": s.features,
		"links":    []interface{}{},
	})
}

// feature returns a sentinel-2 item whose bands are served by the asset server (path: /{kind}/{id}/{band}.tif)
func feature(id, kind string, bands ...string) map[string]interface{} {
	assets := map[string]interface{}{}
	for _, b := range bands {
		assets[b] = map[string]interface{}{
			"href":  fmt.Sprintf("%s/%s/%s/%s.tif", assetSrv.URL, kind, id, b),
			"type":  "image/tiff; application=geotiff; profile=cloud-optimized",
			"roles": []string{"data"},
		}
	}
	return map[string]interface{}{
		"type":       "Feature",
		"id":         id,
		"collection": "sentinel-2-l2a",
		"bbox":       []float64{1, 43, 2, 44},
		"geometry": map[string]interface{}{
			"type":        "Polygon",
			"coordinates": [][][]float64{{{1, 43}, {2, 43}, {2, 44}, {1, 44}, {1, 43}}},
		},
		"properties": map[string]interface{}{"datetime": "2023-06-01T10:56:21.024000Z", "eo:cloud_cover": 3.5},
		"assets":     assets,
		"links":      []interface{}{map[string]string{"rel": "self", "href": "https://host/items/" + id}},
	}
}

func serveAsset(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/ok/"):
		http.ServeContent(w, r, "asset.tif", time.Time{}, bytes.NewReader(assetContent))
	case strings.HasPrefix(r.URL.Path, "/busy/"):
		w.WriteHeader(http.StatusServiceUnavailable)
	case strings.HasPrefix(r.URL.Path, "/slow/"):
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
		w.WriteHeader(http.StatusGatewayTimeout)
	default:
		http.NotFound(w, r)
	}
}

var _ = BeforeSuite(func() {
	ctx = context.Background()
	service.RetryBackoff = time.Millisecond
	stacSrv = httptest.NewServer(&stac)
	assetSrv = httptest.NewServer(http.HandlerFunc(serveAsset))
})

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

var _ = AfterSuite(func() {
	stacSrv.Close()
	assetSrv.Close()
})
