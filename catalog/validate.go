package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/airbusgeo/eo-pipeline/common"
)

// ValidationError is returned when a parameter of the query is invalid
type ValidationError struct {
	Kind    common.ErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(kind common.ErrorKind, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidateTimeRange checks that both dates are YYYY-MM-DD and that start is strictly before end
func ValidateTimeRange(tr common.TimeRange) error {
	start, errStart := time.Parse(common.DateLayout, tr.Start)
	end, errEnd := time.Parse(common.DateLayout, tr.End)
	if errStart != nil || errEnd != nil {
		return validationError(common.MalformedDate, "invalid date format. Use YYYY-MM-DD")
	}
	if !start.Before(end) {
		return validationError(common.InvalidRange, "start date must be before end date")
	}
	return nil
}

// ValidateAOI checks that the AOI is [lon_min, lat_min, lon_max, lat_max] with valid WGS84 bounds
func ValidateAOI(aoi []float64) error {
	if len(aoi) != 4 {
		return validationError(common.MalformedAOI, "AOI must be a list of 4 coordinates [lon_min, lat_min, lon_max, lat_max], received: %v", aoi)
	}
	lonMin, latMin, lonMax, latMax := aoi[0], aoi[1], aoi[2], aoi[3]
	// comparisons with NaN are false
	validLon := -180 <= lonMin && lonMin < lonMax && lonMax <= 180
	validLat := -90 <= latMin && latMin < latMax && latMax <= 90
	if !validLon || !validLat || math.IsNaN(lonMin+latMin+lonMax+latMax) {
		return validationError(common.OutOfBounds, "invalid AOI coordinates")
	}
	return nil
}

// ValidateBands checks that the list is not empty and that all the bands are known
func ValidateBands(bands []string) error {
	if len(bands) == 0 {
		return validationError(common.UnknownBand, "at least one band is required. Valid bands: %s", strings.Join(common.KnownBands(), ", "))
	}
	var unknown []string
	for _, b := range bands {
		if !common.IsKnownBand(b) {
			unknown = append(unknown, b)
		}
	}
	if len(unknown) > 0 {
		return validationError(common.UnknownBand, "invalid bands: %s. Valid bands: %s", strings.Join(unknown, ", "), strings.Join(common.KnownBands(), ", "))
	}
	return nil
}

// ValidateQuery checks the time range, the AOI and the bands, in this order.
// All the failures are returned: errors.As(err, **ValidationError) returns the first one.
func ValidateQuery(q common.Query) error {
	var merr *multierror.Error
	for _, err := range []error{
		ValidateTimeRange(q.TimeRange),
		ValidateAOI(q.AOI),
		ValidateBands(q.Bands),
	} {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr != nil {
		merr.ErrorFormat = joinErrors
	}
	return merr.ErrorOrNil()
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
