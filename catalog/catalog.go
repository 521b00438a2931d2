package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/interface/catalog"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

const (
	DefaultCollection    = "sentinel-2-l2a"
	DefaultMaxCloudCover = 20.
)

// CatalogError is returned by Search
type CatalogError struct {
	Kind common.ErrorKind // CatalogUnreachable or CatalogQueryError
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Catalog searches the items covering a query
type Catalog struct {
	Provider      catalog.ItemsProvider
	Collection    string
	MaxCloudCover float64 // strictly less than
}

// New returns a catalog with the default collection and cloud cover
func New(provider catalog.ItemsProvider) *Catalog {
	return &Catalog{Provider: provider, Collection: DefaultCollection, MaxCloudCover: DefaultMaxCloudCover}
}

// SearchRequest returns the request sent to the provider for this query
func (c *Catalog) SearchRequest(q common.Query) catalog.SearchRequest {
	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	return catalog.SearchRequest{
		Collections: []string{collection},
		Datetime:    q.TimeRange.Interval(),
		BBox:        q.AOI,
		Query: map[string]interface{}{
			"eo:cloud_cover": map[string]interface{}{"lt": c.MaxCloudCover},
		},
	}
}

// Search returns all the items matching the query (time range, AOI, cloud cover).
// The query must have been validated.
// The items are not filtered by bands (see FilterByBands). Duplicated IDs are removed.
func (c *Catalog) Search(ctx context.Context, q common.Query) ([]common.Item, error) {
	log.Logger(ctx).Sugar().Debugf("search %s from %s to %s over %v", c.Collection, q.TimeRange.Start, q.TimeRange.End, q.AOI)
	items, err := c.Provider.SearchItems(ctx, c.SearchRequest(q))
	if err != nil {
		return nil, &CatalogError{Kind: classify(err), Err: fmt.Errorf("Search.%w", err)}
	}

	ids := service.StringSet{}
	unique := items[:0]
	for _, item := range items {
		if ids.Exists(item.ID) {
			log.Logger(ctx).Sugar().Warnf("duplicated item %s ignored", item.ID)
			continue
		}
		ids.Push(item.ID)
		unique = append(unique, item)
	}
	if first, last := AcquisitionRange(unique); !first.IsZero() {
		log.Logger(ctx).Sugar().Infof("%d items found, acquired from %s to %s", len(unique), first.Format(time.RFC3339), last.Format(time.RFC3339))
	} else {
		log.Logger(ctx).Sugar().Infof("%d items found", len(unique))
	}
	return unique, nil
}

// AcquisitionRange returns the first and last acquisition dates of the items.
// Items without a known date are ignored. Both are zero if no item has a date.
func AcquisitionRange(items []common.Item) (first, last time.Time) {
	for _, item := range items {
		if item.Datetime.IsZero() {
			continue
		}
		if first.IsZero() || item.Datetime.Before(first) {
			first = item.Datetime
		}
		if item.Datetime.After(last) {
			last = item.Datetime
		}
	}
	return first, last
}

// classify returns CatalogQueryError if the catalog rejected the query or answered something unreadable,
// CatalogUnreachable otherwise
func classify(err error) common.ErrorKind {
	var herr service.HTTPError
	if errors.Is(err, catalog.ErrMalformedResponse) ||
		(errors.As(err, &herr) && !service.TemporaryStatusCode(herr.StatusCode)) {
		return common.CatalogQueryError
	}
	return common.CatalogUnreachable
}

// FilterByBands returns the items providing all the bands, in the same order
func FilterByBands(items []common.Item, bands []string) []common.Item {
	filtered := make([]common.Item, 0, len(items))
	for _, item := range items {
		if item.HasBands(bands) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
