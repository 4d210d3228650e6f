package desktop

import (
	"context"
	"fmt"
)

// Resolve returns the window to record and the window the script runs in.
// The script window is read before any interactive selection so that focus
// changes during the pick cannot affect it. An empty explicit window asks
// the operator to click the target.
func Resolve(ctx context.Context, ws WindowSystem, explicit Window) (target, scriptWin Window, err error) {
	scriptWin, err = ws.Active(ctx)
	if err != nil {
		return "", "", fmt.Errorf("resolving script window: %w", err)
	}
	if explicit != "" {
		return explicit, scriptWin, nil
	}
	target, err = ws.Select(ctx)
	if err != nil {
		return "", "", fmt.Errorf("selecting target window: %w", err)
	}
	return target, scriptWin, nil
}
