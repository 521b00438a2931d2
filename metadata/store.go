// Package metadata persists the items of a search as a self-contained STAC catalog:
//
//	{root}/catalog.json
//	{root}/{item_id}/{item_id}.json
//
// Files are written atomically and deterministically: persisting twice the same items
// produces identical files.
package metadata

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

const (
	StacVersion        = "1.0.0"
	CatalogFile        = "catalog.json"
	ManifestFile       = "manifest.json" // written by the pipeline next to the catalog
	DefaultDescription = "Items found by the acquisition pipeline"
	jsonMediaType      = "application/json"
	geojsonMediaType   = "application/geo+json"
)

// StoreError is returned when the catalog cannot be written
type StoreError struct {
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s[%s]: %v", common.StoreWriteError, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Kind returns common.StoreWriteError
func (e *StoreError) Kind() common.ErrorKind {
	return common.StoreWriteError
}

// Catalog is the root document of the STAC catalog
type Catalog struct {
	Type        string        `json:"type"`
	StacVersion string        `json:"stac_version"`
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Links       []common.Link `json:"links"`
}

// Store writes the metadata of the items in Root
type Store struct {
	Root        string
	ID          string // ID of the catalog (default: derived from Root)
	Description string
}

// CatalogPath returns the path of the root document
func (s *Store) CatalogPath() string {
	return filepath.Join(s.Root, CatalogFile)
}

func (s *Store) catalogID() string {
	if s.ID != "" {
		return s.ID
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		root = s.Root
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(root))).String()
}

// ItemPath returns the path of the document of the item
func (s *Store) ItemPath(itemID string) string {
	return filepath.Join(s.Root, itemID, itemID+".json")
}

func itemHref(itemID string) string {
	return "./" + path.Join(itemID, itemID+".json")
}

// validItemID rejects the ids whose directory would escape the root or shadow a file of the root
func validItemID(id string) bool {
	switch id {
	case "", ".", "..", CatalogFile, ManifestFile:
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

// Persist writes the catalog and one document per item.
// Items are sorted by ID and de-duplicated. Items of a previous catalog that are not in items are removed.
func (s *Store) Persist(ctx context.Context, items []common.Item) error {
	if err := service.EnsureDir(s.Root); err != nil {
		return &StoreError{Path: s.Root, Err: err}
	}

	// Sort and deduplicate
	sorted := make([]common.Item, 0, len(items))
	ids := service.StringSet{}
	for _, item := range items {
		if !validItemID(item.ID) {
			return &StoreError{Path: s.Root, Err: fmt.Errorf("invalid item id: '%s'", item.ID)}
		}
		if !ids.Exists(item.ID) {
			ids.Push(item.ID)
			sorted = append(sorted, item)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	previous := s.previousItems()

	for _, item := range sorted {
		if err := s.writeItem(item); err != nil {
			return err
		}
	}

	catalog := Catalog{
		Type:        "Catalog",
		StacVersion: StacVersion,
		ID:          s.catalogID(),
		Description: s.Description,
		Links:       []common.Link{{Rel: "root", Href: "./" + CatalogFile, Type: jsonMediaType}},
	}
	if catalog.Description == "" {
		catalog.Description = DefaultDescription
	}
	for _, item := range sorted {
		catalog.Links = append(catalog.Links, common.Link{Rel: "item", Href: itemHref(item.ID), Type: geojsonMediaType})
	}
	if err := service.WriteJSON(catalog, s.CatalogPath()); err != nil {
		return &StoreError{Path: s.CatalogPath(), Err: fmt.Errorf("Persist.%w", err)}
	}

	// Remove the stale items once the new catalog no longer references them
	for _, id := range previous {
		if !ids.Exists(id) {
			if err := os.RemoveAll(filepath.Join(s.Root, id)); err != nil {
				log.Logger(ctx).Sugar().Warnf("unable to remove stale item %s: %v", id, err)
			}
		}
	}
	log.Logger(ctx).Sugar().Infof("%d items saved in %s", len(sorted), s.CatalogPath())
	return nil
}

func (s *Store) writeItem(item common.Item) error {
	links := []common.Link{
		{Rel: "root", Href: "../" + CatalogFile, Type: jsonMediaType},
		{Rel: "parent", Href: "../" + CatalogFile, Type: jsonMediaType},
	}
	for _, l := range item.Links {
		switch l.Rel {
		case "self", "root", "parent", "collection":
		default:
			links = append(links, l)
		}
	}
	item.Links = links
	if item.Type == "" {
		item.Type = "Feature"
	}
	if item.Properties == nil {
		item.Properties = map[string]interface{}{}
	}
	if item.StacVersion == "" {
		item.StacVersion = StacVersion
	}

	file := s.ItemPath(item.ID)
	if err := service.EnsureDir(filepath.Dir(file)); err != nil {
		return &StoreError{Path: file, Err: err}
	}
	if err := service.WriteJSON(item, file); err != nil {
		return &StoreError{Path: file, Err: fmt.Errorf("writeItem.%w", err)}
	}
	return nil
}

// previousItems returns the IDs of the items referenced by the existing catalog, if any
func (s *Store) previousItems() []string {
	var catalog Catalog
	if err := service.ReadJSON(s.CatalogPath(), &catalog); err != nil {
		return nil
	}
	var ids []string
	for _, l := range catalog.Links {
		if l.Rel != "item" {
			continue
		}
		id := path.Base(path.Dir(l.Href))
		if validItemID(id) && l.Href == itemHref(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Load reads the catalog stored in root and its items
func Load(root string) (Catalog, []common.Item, error) {
	var catalog Catalog
	if err := service.ReadJSON(filepath.Join(root, CatalogFile), &catalog); err != nil {
		return catalog, nil, fmt.Errorf("Load.%w", err)
	}
	var items []common.Item
	for _, l := range catalog.Links {
		if l.Rel != "item" {
			continue
		}
		var item common.Item
		if err := service.ReadJSON(filepath.Join(root, filepath.FromSlash(l.Href)), &item); err != nil {
			return catalog, nil, fmt.Errorf("Load.%w", err)
		}
		items = append(items, item)
	}
	return catalog, items, nil
}
