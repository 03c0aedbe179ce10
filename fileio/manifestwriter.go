package fileio

import (
	"fmt"

	"github.com/leocov-dev/curse2nix/core"
)

// WriteManifest renders out in the given format and writes it to path,
// overwriting any existing file.
func WriteManifest(path string, out core.OutputManifest, format string) error {
	data, err := out.Render(format)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
