package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/metadata"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

// NewHandler returns a router serving the pipeline endpoints
func (p *Pipeline) NewHandler() http.Handler {
	r := mux.NewRouter()
	p.AddHandler(r)
	return r
}

// AddHandler adds the pipeline endpoints to the router
func (p *Pipeline) AddHandler(r *mux.Router) {
	r.HandleFunc("/pipeline/runs", p.RunHandler).Methods("POST")
	r.HandleFunc("/pipeline/catalog", p.CatalogHandler).Methods("GET")
}

func stageErrorStatus(serr *StageError) int {
	switch serr.Stage {
	case StageValidating:
		return http.StatusBadRequest
	case StageSearching:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// RunHandler runs the query of the body and returns the manifest.
// Runs are serialized as they share the storage and catalog roots.
func (p *Pipeline) RunHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var q common.Query
	if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "invalid query: %v", err)
		return
	}

	p.runMu.Lock()
	m, err := p.Run(ctx, q)
	p.runMu.Unlock()

	var serr *StageError
	if errors.As(err, &serr) {
		w.WriteHeader(stageErrorStatus(serr))
		fmt.Fprintf(w, "%v", serr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("run %s interrupted: %v", m.RunID, err)
		w.WriteHeader(503)
	}
	json.NewEncoder(w).Encode(m)
}

type catalogResponse struct {
	Catalog metadata.Catalog `json:"catalog"`
	Items   []common.Item    `json:"items"`
}

// CatalogHandler returns the persisted catalog and its items
func (p *Pipeline) CatalogHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	catalog, items, err := metadata.Load(p.Store.Root)
	if service.IsErrNotFound(err) {
		w.WriteHeader(404)
		return
	}
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("metadata.Load: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	if items == nil {
		items = []common.Item{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(catalogResponse{Catalog: catalog, Items: items})
}
