package stac

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/araddon/dateparse"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/interface/catalog"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

// parseItem decodes a STAC item (feature of a search response).
// Only a missing id is an error: an unreadable datetime or geometry is logged and the item is kept as is.
func parseItem(ctx context.Context, raw json.RawMessage) (common.Item, error) {
	var item common.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("parseItem: %v: %w", err, catalog.ErrMalformedResponse)
	}
	if item.ID == "" {
		return item, fmt.Errorf("parseItem: item without id: %w", catalog.ErrMalformedResponse)
	}

	if item.Type == "" {
		item.Type = "Feature"
	}

	if dt, ok := item.Properties["datetime"].(string); ok && dt != "" {
		if date, err := dateparse.ParseAny(dt); err != nil {
			log.Logger(ctx).Sugar().Warnf("item %s: unreadable datetime '%s': %v", item.ID, dt, err)
		} else {
			item.Datetime = date.UTC()
		}
	}

	if len(item.BBox) == 0 && len(item.Geometry) > 0 && string(item.Geometry) != "null" {
		if bbox, err := service.GeometryBBox(item.Geometry); err != nil {
			log.Logger(ctx).Sugar().Warnf("item %s: no bbox: %v", item.ID, err)
		} else {
			item.BBox = bbox
		}
	}
	return item, nil
}
