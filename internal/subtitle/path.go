package subtitle

import (
	"path/filepath"
	"strings"

	"github.com/oukeidos/tsov/internal/files"
)

// GenerateOutputPath derives "<base>_<suffix><ext>" from inputPath and moves
// it aside with a numbered or UUID suffix if that file already exists.
func GenerateOutputPath(inputPath, suffix string) (string, error) {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	path, _, err := files.SafePath(base + "_" + suffix + ext)
	return path, err
}
