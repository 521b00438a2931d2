package common

import "sort"

// JP2Suffix is appended to a band name to select the JPEG2000 flavour of the asset
const JP2Suffix = "-jp2"

// Sentinel-2 L2A assets, as exposed by the Earth Search catalog
var baseBands = []string{
	"aot",
	"blue",
	"coastal",
	"granule_metadata",
	"green",
	"nir",
	"nir08",
	"nir09",
	"red",
	"rededge1",
	"rededge2",
	"rededge3",
	"scl",
	"swir16",
	"swir22",
	"thumbnail",
	"tileinfo_metadata",
	"visual",
	"wvp",
}

// Metadata assets have no -jp2 variant
var noJP2Variant = map[string]struct{}{
	"granule_metadata":  {},
	"thumbnail":         {},
	"tileinfo_metadata": {},
}

var knownBands = func() map[string]struct{} {
	bands := map[string]struct{}{}
	for _, b := range baseBands {
		bands[b] = struct{}{}
		if _, ok := noJP2Variant[b]; !ok {
			bands[b+JP2Suffix] = struct{}{}
		}
	}
	return bands
}()

// IsKnownBand returns true if the band belongs to the known vocabulary
func IsKnownBand(band string) bool {
	_, ok := knownBands[band]
	return ok
}

// KnownBands returns the sorted vocabulary of bands
func KnownBands() []string {
	bands := make([]string, 0, len(knownBands))
	for b := range knownBands {
		bands = append(bands, b)
	}
	sort.Strings(bands)
	return bands
}
