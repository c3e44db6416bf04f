package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes the export to a local path.  The file is replaced
// by rename so readers never see a partial export.
type FileDestination struct {
	Path string
}

func (d FileDestination) Write(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(d.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir export dir: %w", err)
	}
	tmp := d.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmp, d.Path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}

func (d FileDestination) String() string {
	return d.Path
}
