//go:build !unix

package procs

import (
	"context"
	"errors"
	"time"
)

const DefaultStopTimeout = 3 * time.Second

var errUnsupported = errors.New("process supervision is only supported on unix")

// OSExecutor is unavailable on this platform.
type OSExecutor struct{}

func NewOSExecutor(time.Duration) *OSExecutor { return &OSExecutor{} }

func (*OSExecutor) Spawn(context.Context, Spec) (int, error) { return 0, errUnsupported }
func (*OSExecutor) Terminate(context.Context, int) error     { return ErrProcessGone }
func (*OSExecutor) IsAlive(int) bool                         { return false }
