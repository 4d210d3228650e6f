package session

import (
	"errors"
	"fmt"
)

// ErrOperatorAborted is returned when the run is interrupted by the operator,
// either by a signal or by closing the acknowledgment input.
var ErrOperatorAborted = errors.New("recording aborted by operator")

// ResolutionError reports a failure to identify or measure a window. No
// capture process has been started when it is returned.
type ResolutionError struct {
	Stage string // "windows" or "geometry"
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("window resolution failed (%s): %v", e.Stage, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
