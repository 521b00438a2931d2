package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-spatial/geom/encoding/geojson"
	"golang.org/x/time/rate"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/interface/catalog"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

const (
	EarthSearchURL = "https://earth-search.aws.element84.com/v1"
	DefaultLimit   = 100
	DefaultRetries = 4
)

type searchBody struct {
	Bbox        []float64              `json:"bbox,omitempty"`
	Intersects  *geojson.Geometry      `json:"intersects,omitempty"`
	Query       map[string]interface{} `json:"query,omitempty"`
	Datetime    string                 `json:"datetime,omitempty"`
	Collections []string               `json:"collections"`
	Limit       int                    `json:"limit,omitempty"`
}

type searchResponse struct {
	Features       []json.RawMessage `json:"features"`
	Links          []link            `json:"links"`
	NumberMatched  int               `json:"numberMatched"`
	NumberReturned int               `json:"numberReturned"`
}

type link struct {
	Body   map[string]interface{} `json:"body"`
	Merge  bool                   `json:"merge"`
	Href   string                 `json:"href"`
	Method string                 `json:"method"`
	Rel    string                 `json:"rel"`
}

// Provider searches the items of a STAC API (/search endpoint)
type Provider struct {
	URL        string // Root of the STAC API
	Limit      int    // Items per page
	Client     *http.Client
	Limiter    *rate.Limiter // Limits the rate of the page requests (optional)
	NbRetries  int
	Intersects bool // Send the bbox as an "intersects" polygon
}

// NewProvider creates a provider with default parameters.
// rps <= 0 disables the rate limit.
func NewProvider(url string, client *http.Client, rps float64) *Provider {
	p := &Provider{URL: url, Limit: DefaultLimit, Client: client, NbRetries: DefaultRetries}
	if rps > 0 {
		p.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return p
}

type page struct {
	method string
	url    string
	body   []byte
}

// SearchItems implements catalog.ItemsProvider, following the "next" links until the last page
func (p *Provider) SearchItems(ctx context.Context, req catalog.SearchRequest) ([]common.Item, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	search := searchBody{
		Query:       req.Query,
		Datetime:    req.Datetime,
		Collections: req.Collections,
		Limit:       limit,
	}
	if p.Intersects && len(req.BBox) == 4 {
		poly, err := service.BBoxPolygon(req.BBox)
		if err != nil {
			return nil, fmt.Errorf("SearchItems.%w", err)
		}
		search.Intersects = &geojson.Geometry{Geometry: poly}
	} else {
		search.Bbox = req.BBox
	}
	body, err := json.Marshal(search)
	if err != nil {
		return nil, fmt.Errorf("SearchItems.Marshal: %w", err)
	}

	next := &page{method: "POST", url: strings.TrimSuffix(p.URL, "/") + "/search", body: body}
	visited := service.StringSet{}
	var items []common.Item
	for n := 1; next != nil; n++ {
		key := next.method + " " + next.url + " " + string(next.body)
		if visited.Exists(key) {
			return nil, fmt.Errorf("SearchItems: pagination loop on %s: %w", next.url, catalog.ErrMalformedResponse)
		}
		visited.Push(key)

		resp, err := p.queryPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("SearchItems.%w", err)
		}
		for _, raw := range resp.Features {
			item, err := parseItem(ctx, raw)
			if err != nil {
				return nil, fmt.Errorf("SearchItems.%w", err)
			}
			items = append(items, item)
		}
		log.Logger(ctx).Sugar().Debugf("page %d: %d items (%d matched)", n, len(resp.Features), resp.NumberMatched)

		if next, err = nextPage(next, resp.Links); err != nil {
			return nil, fmt.Errorf("SearchItems.%w", err)
		}
	}
	return items, nil
}

func (p *Provider) queryPage(ctx context.Context, pg *page) (*searchResponse, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("queryPage.Wait: %w", err)
		}
	}
	var body *bytes.Reader
	if pg.method == "POST" {
		body = bytes.NewReader(pg.body)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, pg.method, pg.url, body)
	if err != nil {
		return nil, fmt.Errorf("queryPage.NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	if pg.method == "POST" {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := service.GetBodyRetryReq(p.Client, req, p.NbRetries)
	if err != nil {
		return nil, fmt.Errorf("queryPage.GetBodyRetryReq(%s): %w", pg.url, err)
	}
	resp := &searchResponse{}
	if err := json.Unmarshal(respBody, resp); err != nil {
		return nil, fmt.Errorf("queryPage.Unmarshal(%s): %v: %w", pg.url, err, catalog.ErrMalformedResponse)
	}
	return resp, nil
}

// nextPage returns the request of the next page or nil if current is the last one
func nextPage(current *page, links []link) (*page, error) {
	for _, l := range links {
		if l.Rel != "next" {
			continue
		}
		if l.Href == "" {
			return nil, fmt.Errorf("nextPage: next link without href: %w", catalog.ErrMalformedResponse)
		}
		method := strings.ToUpper(l.Method)
		if method == "" {
			method = "GET"
		}
		next := &page{method: method, url: l.Href}
		if method == "POST" {
			body := map[string]interface{}{}
			if l.Merge || l.Body == nil {
				if err := json.Unmarshal(current.body, &body); err != nil {
					return nil, fmt.Errorf("nextPage.Unmarshal: %w", err)
				}
			}
			for k, v := range l.Body {
				body[k] = v
			}
			var err error
			if next.body, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("nextPage.Marshal: %w", err)
			}
		}
		return next, nil
	}
	return nil, nil
}
