// Package zip builds download bundles of generated batch outputs.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Asset is one file in a download bundle.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes the assets into a zip archive. Generated PNGs are
// already compressed, so entries are stored rather than deflated. Empty
// assets are skipped.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		if len(asset.Data) == 0 {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   asset.Filename,
			Method: zip.Store,
		})
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("archive %s: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
