package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/eo-pipeline/common"
)

func testItem(id string) common.Item {
	return common.Item{
		ID:         id,
		Collection: "sentinel-2-l2a",
		BBox:       []float64{1, 43, 2, 44},
		Geometry:   json.RawMessage(`{"type":"Polygon","coordinates":[[[1,43],[2,43],[2,44],[1,44],[1,43]]]}`),
		Properties: map[string]interface{}{"datetime": "2023-06-01T10:56:21Z", "eo:cloud_cover": 3.5},
		Assets: map[string]common.Asset{
			"red": {Href: "https://host/" + id + "/B04.tif", Roles: []string{"data"}, Extra: map[string]interface{}{"gsd": 10.}},
		},
		Links: []common.Link{
			{Rel: "self", Href: "https://host/items/" + id},
			{Rel: "license", Href: "https://sentinel.esa.int/license"},
		},
	}
}

func readAll(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		b, err := os.ReadFile(p)
		rel, _ := filepath.Rel(root, p)
		files[rel] = string(b)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return files
}

func TestPersistIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "catalog")
	s := &Store{Root: root}
	ctx := context.Background()

	items := []common.Item{testItem("B"), testItem("A"), testItem("B")}
	if err := s.Persist(ctx, items); err != nil {
		t.Fatal(err)
	}
	first := readAll(t, root)
	if len(first) != 3 {
		t.Fatalf("expected catalog.json and 2 items, got %v", first)
	}
	if err := s.Persist(ctx, items); err != nil {
		t.Fatal(err)
	}
	second := readAll(t, root)
	for name, content := range first {
		if second[name] != content {
			t.Errorf("%s differs after a second run", name)
		}
	}
	if len(second) != len(first) {
		t.Errorf("unexpected files %v", second)
	}
}

func TestPersistLoad(t *testing.T) {
	root := t.TempDir()
	s := &Store{Root: root, ID: "test-catalog"}
	if err := s.Persist(context.Background(), []common.Item{testItem("B"), testItem("A")}); err != nil {
		t.Fatal(err)
	}

	catalog, items, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if catalog.ID != "test-catalog" || catalog.Type != "Catalog" || catalog.StacVersion != StacVersion {
		t.Errorf("unexpected catalog %+v", catalog)
	}
	if len(catalog.Links) != 3 || catalog.Links[0].Rel != "root" || catalog.Links[1].Href != "./A/A.json" || catalog.Links[2].Href != "./B/B.json" {
		t.Errorf("unexpected links %+v", catalog.Links)
	}
	if len(items) != 2 || items[0].ID != "A" || items[1].ID != "B" {
		t.Fatalf("unexpected items %v", items)
	}

	it := items[0]
	if it.Type != "Feature" || it.Assets["red"].Href != "https://host/A/B04.tif" || it.Assets["red"].Extra["gsd"] != 10. {
		t.Errorf("unexpected item %+v", it)
	}
	if it.Properties["eo:cloud_cover"] != 3.5 {
		t.Errorf("properties must be passed through: %v", it.Properties)
	}
	rels := map[string]string{}
	for _, l := range it.Links {
		rels[l.Rel] = l.Href
	}
	if _, ok := rels["self"]; ok {
		t.Error("remote self link must be dropped")
	}
	if rels["root"] != "../catalog.json" || rels["parent"] != "../catalog.json" || rels["license"] == "" {
		t.Errorf("unexpected links %v", rels)
	}
}

func TestPersistRemovesStaleItems(t *testing.T) {
	root := t.TempDir()
	s := &Store{Root: root}
	ctx := context.Background()
	if err := s.Persist(ctx, []common.Item{testItem("A"), testItem("B")}); err != nil {
		t.Fatal(err)
	}
	// not referenced by the catalog: left untouched
	os.Mkdir(filepath.Join(root, "user-data"), 0755)

	if err := s.Persist(ctx, []common.Item{testItem("B")}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "A")); !os.IsNotExist(err) {
		t.Error("stale item A must be removed")
	}
	if _, err := os.Stat(filepath.Join(root, "user-data")); err != nil {
		t.Error("unknown directories must be kept")
	}
	_, items, err := Load(root)
	if err != nil || len(items) != 1 || items[0].ID != "B" {
		t.Errorf("unexpected items %v %v", items, err)
	}

	// no item
	if err := s.Persist(ctx, nil); err != nil {
		t.Fatal(err)
	}
	catalog, items, err := Load(root)
	if err != nil || len(items) != 0 || len(catalog.Links) != 1 {
		t.Errorf("expected an empty catalog, got %v %v", catalog, err)
	}
}

func TestPersistErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	os.WriteFile(file, nil, 0644)

	var serr *StoreError
	err := (&Store{Root: file}).Persist(context.Background(), []common.Item{testItem("A")})
	if !errors.As(err, &serr) || serr.Kind() != common.StoreWriteError {
		t.Errorf("expected a StoreError, got %v", err)
	}

	err = (&Store{Root: dir}).Persist(context.Background(), []common.Item{testItem("../A")})
	if !errors.As(err, &serr) {
		t.Errorf("expected a StoreError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, CatalogFile)); !os.IsNotExist(err) {
		t.Error("nothing must be written")
	}
}

func TestPersistReservedIDs(t *testing.T) {
	root := t.TempDir()
	s := &Store{Root: root}
	ctx := context.Background()
	if err := s.Persist(ctx, []common.Item{testItem("A")}); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(root, ManifestFile)
	os.WriteFile(manifest, []byte("{}"), 0644)

	for _, id := range []string{CatalogFile, ManifestFile, ".", `A\B`} {
		var serr *StoreError
		if err := s.Persist(ctx, []common.Item{testItem("B"), testItem(id)}); !errors.As(err, &serr) {
			t.Errorf("%s: expected a StoreError, got %v", id, err)
		}
	}
	if info, err := os.Stat(manifest); err != nil || info.IsDir() {
		t.Errorf("the manifest must be kept: %v", err)
	}
	if info, err := os.Stat(s.CatalogPath()); err != nil || info.IsDir() {
		t.Errorf("the catalog must be kept: %v", err)
	}
	if _, items, err := Load(root); err != nil || len(items) != 1 || items[0].ID != "A" {
		t.Errorf("unexpected items %v %v", items, err)
	}
}

func TestCatalogID(t *testing.T) {
	a := (&Store{Root: "/data/catalog"}).catalogID()
	b := (&Store{Root: "/data/catalog/"}).catalogID()
	c := (&Store{Root: "/data/other"}).catalogID()
	if a != b || a == c {
		t.Errorf("the catalog id must only depend on the root: %s %s %s", a, b, c)
	}
}
