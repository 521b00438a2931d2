package pipeline

//go:generate go run github.com/dmarkham/enumer -json -type Stage -trimprefix Stage

// Stage of a pipeline run
type Stage int32

const (
	StageIdle Stage = iota
	StageValidating
	StageSearching
	StagePersistingMetadata
	StageDownloading
	StageDone
	StageFailed
)
