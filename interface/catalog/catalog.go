package catalog

import (
	"context"
	"errors"

	"github.com/airbusgeo/eo-pipeline/common"
)

// ErrMalformedResponse is wrapped by the providers when the answer of the catalog cannot be understood
var ErrMalformedResponse = errors.New("malformed response")

// SearchRequest is a STAC-like item search
type SearchRequest struct {
	Collections []string
	Datetime    string    // start/end
	BBox        []float64 // lon_min, lat_min, lon_max, lat_max
	Query       map[string]interface{}
}

// ItemsProvider searches a catalog and returns all the matching items (all pages)
type ItemsProvider interface {
	SearchItems(ctx context.Context, req SearchRequest) ([]common.Item, error)
}
