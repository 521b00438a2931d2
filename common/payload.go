package common

import (
	"encoding/json"
	"sort"
	"time"
)

// DateLayout is the only accepted format for the bounds of a TimeRange
const DateLayout = "2006-01-02"

// TimeRange is an interval of acquisition dates, formatted as DateLayout
type TimeRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Interval formats the time range as expected by a STAC datetime parameter
func (tr TimeRange) Interval() string {
	return tr.Start + "/" + tr.End
}

// Query defines the imagery to acquire
type Query struct {
	TimeRange TimeRange `json:"time_range"`
	AOI       []float64 `json:"aoi"` // lon_min, lat_min, lon_max, lat_max
	Bands     []string  `json:"bands"`
}

// Asset is a downloadable file of an item
type Asset struct {
	Href      string                    `json:"href"`
	Type      string                    `json:"type,omitempty"`
	Title     string                    `json:"title,omitempty"`
	Roles     []string                  `json:"roles,omitempty"`
	Alternate map[string]AssetAlternate `json:"alternate,omitempty"`
	Extra     map[string]interface{}    `json:"-"`
}

type assetAlias Asset

var assetFields = []string{"href", "type", "title", "roles", "alternate"}

// UnmarshalJSON keeps the fields that are not modelled (eo:bands, raster:bands...) in Extra
func (a *Asset) UnmarshalJSON(b []byte) error {
	var aa assetAlias
	if err := json.Unmarshal(b, &aa); err != nil {
		return err
	}
	var extra map[string]interface{}
	if err := json.Unmarshal(b, &extra); err != nil {
		return err
	}
	for _, f := range assetFields {
		delete(extra, f)
	}
	if len(extra) > 0 {
		aa.Extra = extra
	}
	*a = Asset(aa)
	return nil
}

// MarshalJSON writes Extra alongside the modelled fields
func (a Asset) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(assetAlias(a))
	if err != nil || len(a.Extra) == 0 {
		return b, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range a.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// AssetAlternate is another location of the same asset (e.g. s3)
type AssetAlternate struct {
	Href string `json:"href"`
}

// Link of a STAC object
type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// Item is a catalog record describing one capture and its assets.
// Geometry and Properties are passed through untouched.
type Item struct {
	Type           string                 `json:"type"`
	ID             string                 `json:"id"`
	Collection     string                 `json:"collection,omitempty"`
	Datetime       time.Time              `json:"-"`
	BBox           []float64              `json:"bbox,omitempty"`
	Geometry       json.RawMessage        `json:"geometry"`
	Properties     map[string]interface{} `json:"properties"`
	Assets         map[string]Asset       `json:"assets"`
	Links          []Link                 `json:"links"`
	StacVersion    string                 `json:"stac_version,omitempty"`
	StacExtensions []string               `json:"stac_extensions,omitempty"`
}

// HasBands returns true if the item provides an asset for each band
func (it Item) HasBands(bands []string) bool {
	for _, band := range bands {
		if _, ok := it.Assets[band]; !ok {
			return false
		}
	}
	return true
}

// DownloadTask is the download of one band of one item
type DownloadTask struct {
	ItemID      string `json:"item_id"`
	Band        string `json:"band"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// DownloadResult is the outcome of a DownloadTask
type DownloadResult struct {
	DownloadTask
	Outcome      Outcome   `json:"outcome"`
	BytesWritten int64     `json:"bytes_written,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	Message      string    `json:"message,omitempty"`
	Attempts     int       `json:"attempts"`
}

// SortResults sorts the results by item then band
func SortResults(results []DownloadResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ItemID != results[j].ItemID {
			return results[i].ItemID < results[j].ItemID
		}
		return results[i].Band < results[j].Band
	})
}

// Manifest is the output of a pipeline run
type Manifest struct {
	RunID       string           `json:"run_id"`
	Query       Query            `json:"query"`
	Items       []string         `json:"items"`
	CatalogPath string           `json:"catalog_path"`
	Results     []DownloadResult `json:"results"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// SavedFiles returns the destination of all the successful downloads
func (m Manifest) SavedFiles() []string {
	var files []string
	for _, r := range m.Results {
		if r.Outcome == OutcomeSuccess {
			files = append(files, r.Destination)
		}
	}
	return files
}

// Failures returns the results of the failed downloads
func (m Manifest) Failures() []DownloadResult {
	var failures []DownloadResult
	for _, r := range m.Results {
		if r.Outcome != OutcomeSuccess {
			failures = append(failures, r)
		}
	}
	return failures
}
