package emotion

import "errors"

var (
	// ErrSourceNotFound reports a missing corpus file. Callers must abort the run.
	ErrSourceNotFound = errors.New("corpus source not found")
	// ErrLengthMismatch marks a text/label row-count mismatch that was truncated.
	ErrLengthMismatch = errors.New("text/label length mismatch")
	// ErrUnmappableLabel is returned for fine codes outside every configured range.
	ErrUnmappableLabel = errors.New("unmappable emotion code")
	// ErrUnknownLabel is returned when encoding a label missing from the training mapping.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrUnknownID is returned when decoding an id outside [0, K).
	ErrUnknownID = errors.New("unknown label id")
	// ErrWeightVectorMismatch rejects manual class weights that do not line up with the labels.
	ErrWeightVectorMismatch = errors.New("class weight vector mismatch")
	// ErrInvalidRatio rejects split ratios outside (0, 1).
	ErrInvalidRatio = errors.New("split ratio must be between 0 and 1")
	// ErrEmptyCorpus is returned when no usable record survives loading.
	ErrEmptyCorpus = errors.New("corpus is empty")
)
