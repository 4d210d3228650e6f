package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write renders r with rn and writes it to path atomically via a temp file
// and os.Rename.
func Write(path string, r *Report, rn Renderer) (err error) {
	data, err := rn.Render(r)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
