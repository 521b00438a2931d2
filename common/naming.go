package common

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultAssetExtension is used when the href of an asset has no known extension
const DefaultAssetExtension = ".tif"

var knownExtensions = map[string]string{
	".tif":  ".tif",
	".tiff": ".tif",
	".jp2":  ".jp2",
	".xml":  ".xml",
	".json": ".json",
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
}

// AssetExtension returns the extension of the file targeted by href (including the dot)
func AssetExtension(href string) string {
	p := href
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		p = u.Path
	}
	if ext, ok := knownExtensions[strings.ToLower(path.Ext(p))]; ok {
		return ext
	}
	return DefaultAssetExtension
}

// AssetFileName returns the local file name of the band of an item: {itemID}_{band}{ext}
func AssetFileName(itemID, band, href string) string {
	return itemID + "_" + band + AssetExtension(href)
}

// AssetPath returns the local path of the band of an item under storageRoot
func AssetPath(storageRoot, itemID, band, href string) string {
	return filepath.Join(storageRoot, AssetFileName(itemID, band, href))
}
