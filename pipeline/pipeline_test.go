package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/metadata"
	"github.com/airbusgeo/eo-pipeline/pipeline"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pipeline", func() {
	var (
		root   string
		cfg    pipeline.Config
		p      *pipeline.Pipeline
		stages []pipeline.Stage
		mu     sync.Mutex
		query  common.Query
	)

	newPipeline := func() *pipeline.Pipeline {
		p := pipeline.New(ctx, cfg)
		p.Downloader.Backoff = time.Millisecond
		p.OnStage = func(ctx context.Context, s pipeline.Stage) {
			mu.Lock()
			stages = append(stages, s)
			mu.Unlock()
		}
		return p
	}

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "pipeline")
		Expect(err).NotTo(HaveOccurred())
		cfg = pipeline.DefaultConfig()
		cfg.CatalogURL = stacSrv.URL
		cfg.StorageRoot = filepath.Join(root, "data")
		cfg.CatalogRoot = filepath.Join(root, "catalog")
		stages = nil
		query = common.Query{
			TimeRange: common.TimeRange{Start: "2023-06-01", End: "2023-06-30"},
			AOI:       []float64{1.2, 43.5, 1.6, 43.7},
			Bands:     []string{"red", "nir"},
		}
		stac.set(200,
			feature("S2A_1", "ok", "red", "nir", "blue"),
			feature("S2A_2", "ok", "red"),
			feature("S2A_3", "busy", "red", "nir"),
		)
		p = newPipeline()
	})

	AfterEach(func() {
		os.RemoveAll(root)
	})

	Context("when the query is invalid", func() {
		It("should fail before searching", func() {
			query.TimeRange.Start = "2023/06/01"
			_, err := p.Run(ctx, query)
			var serr *pipeline.StageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Stage).To(Equal(pipeline.StageValidating))
			Expect(serr.Kind()).To(Equal(common.MalformedDate))
			Expect(stages).To(Equal([]pipeline.Stage{pipeline.StageValidating, pipeline.StageFailed}))
			Expect(stac.nbSearches()).To(Equal(0))
			_, err = os.Stat(cfg.CatalogRoot)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("should report an unknown band", func() {
			query.Bands = []string{"red", "B04"}
			_, err := p.Run(ctx, query)
			var serr *pipeline.StageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Kind()).To(Equal(common.UnknownBand))
			Expect(err.Error()).To(ContainSubstring("B04"))
		})
	})

	Context("when the catalog fails", func() {
		It("should report an unreachable catalog", func() {
			stac.set(500)
			_, err := p.Run(ctx, query)
			var serr *pipeline.StageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Stage).To(Equal(pipeline.StageSearching))
			Expect(serr.Kind()).To(Equal(common.CatalogUnreachable))
			Expect(stac.nbSearches()).To(BeNumerically(">", 1))
		})

		It("should report a rejected query", func() {
			stac.set(400)
			_, err := p.Run(ctx, query)
			var serr *pipeline.StageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Kind()).To(Equal(common.CatalogQueryError))
			Expect(stac.nbSearches()).To(Equal(1))
			_, err = os.Stat(cfg.StorageRoot)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("when the metadata cannot be written", func() {
		It("should not download anything", func() {
			Expect(os.WriteFile(filepath.Join(root, "file"), nil, 0644)).To(Succeed())
			cfg.CatalogRoot = filepath.Join(root, "file")
			p = newPipeline()
			_, err := p.Run(ctx, query)
			var serr *pipeline.StageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Stage).To(Equal(pipeline.StagePersistingMetadata))
			Expect(serr.Kind()).To(Equal(common.StoreWriteError))
			_, err = os.Stat(cfg.StorageRoot)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("when the query is valid", func() {
		It("should save the metadata and the assets", func() {
			m, err := p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(stages).To(Equal([]pipeline.Stage{
				pipeline.StageValidating, pipeline.StageSearching, pipeline.StagePersistingMetadata,
				pipeline.StageDownloading, pipeline.StageDone}))

			Expect(m.RunID).NotTo(BeEmpty())
			Expect(m.Items).To(Equal([]string{"S2A_1", "S2A_3"}))
			Expect(m.CatalogPath).To(Equal(filepath.Join(cfg.CatalogRoot, "catalog.json")))
			Expect(m.FinishedAt).NotTo(BeTemporally("<", m.StartedAt))

			Expect(m.Results).To(HaveLen(4))
			summary := []string{}
			for _, r := range m.Results {
				summary = append(summary, r.ItemID+"/"+r.Band+":"+r.Outcome.String())
			}
			Expect(summary).To(Equal([]string{"S2A_1/nir:Success", "S2A_1/red:Success", "S2A_3/nir:Failure", "S2A_3/red:Failure"}))

			Expect(m.SavedFiles()).To(ConsistOf(
				filepath.Join(cfg.StorageRoot, "S2A_1_nir.tif"),
				filepath.Join(cfg.StorageRoot, "S2A_1_red.tif")))
			for _, f := range m.SavedFiles() {
				b, err := os.ReadFile(f)
				Expect(err).NotTo(HaveOccurred())
				Expect(b).To(Equal(assetContent))
			}
			for _, f := range m.Failures() {
				Expect(f.ErrorKind).To(Equal(common.DownloadError))
				Expect(f.Attempts).To(Equal(3))
				Expect(f.Message).To(ContainSubstring(f.Source))
			}
			entries, err := os.ReadDir(cfg.StorageRoot)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))

			catalog, items, err := metadata.Load(cfg.CatalogRoot)
			Expect(err).NotTo(HaveOccurred())
			Expect(catalog.Type).To(Equal("Catalog"))
			Expect(items).To(HaveLen(2))
			Expect(items[0].ID).To(Equal("S2A_1"))
			Expect(items[0].Assets).To(HaveKey("blue"))

			var saved common.Manifest
			b, err := os.ReadFile(p.ManifestPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(b, &saved)).To(Succeed())
			Expect(saved.RunID).To(Equal(m.RunID))
			Expect(saved.Results).To(HaveLen(4))
		})

		It("should produce the same catalog when run twice", func() {
			_, err := p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			first, err := os.ReadFile(filepath.Join(cfg.CatalogRoot, "catalog.json"))
			Expect(err).NotTo(HaveOccurred())
			firstItem, err := os.ReadFile(filepath.Join(cfg.CatalogRoot, "S2A_1", "S2A_1.json"))
			Expect(err).NotTo(HaveOccurred())

			_, err = p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			second, _ := os.ReadFile(filepath.Join(cfg.CatalogRoot, "catalog.json"))
			secondItem, _ := os.ReadFile(filepath.Join(cfg.CatalogRoot, "S2A_1", "S2A_1.json"))
			Expect(second).To(Equal(first))
			Expect(secondItem).To(Equal(firstItem))
		})

		It("should succeed without any matching item", func() {
			query.Bands = []string{"swir16"}
			m, err := p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Items).To(BeEmpty())
			Expect(m.Results).To(BeEmpty())
			_, items, err := metadata.Load(cfg.CatalogRoot)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())
		})

		It("should skip the assets already downloaded", func() {
			cfg.SkipExisting = true
			p = newPipeline()
			Expect(os.MkdirAll(cfg.StorageRoot, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(cfg.StorageRoot, "S2A_3_red.tif"), []byte("cached"), 0644)).To(Succeed())
			m, err := p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Failures()).To(HaveLen(1))
			Expect(m.Results[3].Outcome).To(Equal(common.OutcomeSuccess))
			Expect(m.Results[3].Attempts).To(Equal(0))
		})
	})

	Context("with a custom search configuration", func() {
		It("should send a cloud cover of 0 and an intersects polygon", func() {
			cfg.MaxCloudCover = 0
			cfg.CatalogIntersects = true
			p = newPipeline()
			_, err := p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())

			body := stac.lastBody()
			Expect(body).To(HaveKeyWithValue("query", HaveKeyWithValue("eo:cloud_cover", HaveKeyWithValue("lt", BeNumerically("==", 0)))))
			Expect(body).To(HaveKeyWithValue("intersects", HaveKeyWithValue("type", "Polygon")))
			Expect(body).NotTo(HaveKey("bbox"))
		})

		It("should send the default cloud cover and the bbox", func() {
			_, err := p.Run(ctx, query)
			Expect(err).NotTo(HaveOccurred())

			body := stac.lastBody()
			Expect(body).To(HaveKeyWithValue("query", HaveKeyWithValue("eo:cloud_cover", HaveKeyWithValue("lt", BeNumerically("==", 20)))))
			Expect(body).To(HaveKeyWithValue("bbox", HaveLen(4)))
			Expect(body).NotTo(HaveKey("intersects"))
		})

		It("should close its fetchers", func() {
			Expect(p.Close()).To(Succeed())
		})
	})

	Context("when the run is canceled", func() {
		It("should report the unfinished downloads", func() {
			stac.set(200, feature("S2A_4", "slow", "red", "nir"), feature("S2A_5", "slow", "red"))
			cfg.Concurrency = 1
			p = newPipeline()
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			p.OnStage = func(ctx context.Context, s pipeline.Stage) {
				if s == pipeline.StageDownloading {
					time.AfterFunc(100*time.Millisecond, cancel)
				}
			}
			m, err := p.Run(cctx, query)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(m.Items).To(Equal([]string{"S2A_4"}))
			Expect(m.Results).To(HaveLen(2))
			for _, r := range m.Results {
				Expect(r.Outcome).To(Equal(common.OutcomeFailure))
				Expect(r.ErrorKind).To(Equal(common.DownloadError))
			}
			entries, _ := os.ReadDir(cfg.StorageRoot)
			Expect(entries).To(BeEmpty())
		})
	})

	Context("through the http handler", func() {
		var srv *httptest.Server
		BeforeEach(func() {
			srv = httptest.NewServer(p.NewHandler())
		})
		AfterEach(func() {
			srv.Close()
		})

		post := func(body string) *http.Response {
			resp, err := http.Post(srv.URL+"/pipeline/runs", "application/json", strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("should reject an invalid query", func() {
			resp := post(`{"time_range":{"start":"2023-06-01","end":"2023-06-30"},"aoi":[1,2,3],"bands":["red"]}`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(400))

			resp = post(`not json`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should report a catalog error", func() {
			stac.set(400)
			resp := post(`{"time_range":{"start":"2023-06-01","end":"2023-06-30"},"aoi":[1,43,2,44],"bands":["red"]}`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(502))
		})

		It("should run the query and serve the catalog", func() {
			resp, err := http.Get(srv.URL + "/pipeline/catalog")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(404))

			resp = post(`{"time_range":{"start":"2023-06-01","end":"2023-06-30"},"aoi":[1,43,2,44],"bands":["red"]}`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(200))
			var m common.Manifest
			Expect(json.NewDecoder(resp.Body).Decode(&m)).To(Succeed())
			Expect(m.Items).To(Equal([]string{"S2A_1", "S2A_2", "S2A_3"}))
			Expect(m.SavedFiles()).To(HaveLen(2))

			resp, err = http.Get(srv.URL + "/pipeline/catalog")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(200))
			var content struct {
				Catalog metadata.Catalog `json:"catalog"`
				Items   []common.Item    `json:"items"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&content)).To(Succeed())
			Expect(content.Items).To(HaveLen(3))
		})
	})
})
