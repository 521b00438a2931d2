package common

//go:generate go run github.com/dmarkham/enumer -json -type ErrorKind
//go:generate go run github.com/dmarkham/enumer -json -type Outcome -trimprefix Outcome

// ErrorKind classifies the failures of a pipeline run
type ErrorKind int

const (
	NoError ErrorKind = iota
	// Validation errors: fatal, raised before any I/O
	MalformedDate
	InvalidRange
	MalformedAOI
	OutOfBounds
	UnknownBand
	// Catalog errors: fatal
	CatalogUnreachable
	CatalogQueryError
	// Metadata store errors: fatal, raised before any download
	StoreWriteError
	// Per-task error: retried, then recorded in the manifest
	DownloadError
)

// Fatal returns true if an error of this kind aborts the run
func (k ErrorKind) Fatal() bool {
	switch k {
	case NoError, DownloadError:
		return false
	}
	return true
}

// Outcome of a download task
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)
