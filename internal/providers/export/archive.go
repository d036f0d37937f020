// Package export packages a session's component for download.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

// File names inside the archive.
const (
	ComponentFile = "Component.jsx"
	StyleFile     = "styles.css"
)

// ArchiveName is the suggested download file name.
const ArchiveName = "component.zip"

// Archive builds a zip containing the component body and stylesheet.
func Archive(component types.WorkingComponent) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	entries := []struct {
		name    string
		content string
	}{
		{ComponentFile, component.Body},
		{StyleFile, component.Style},
	}
	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", e.name, err)
		}
		if _, err := f.Write([]byte(e.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
