package fileio

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leocov-dev/curse2nix/core"
)

const ManifestFileName = "manifest.json"

// LoadManifest reads a CurseForge manifest from a manifest.json file, a
// directory containing one, or a modpack zip.
func LoadManifest(path string) (core.Manifest, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return core.Manifest{}, err
	}
	if stat.IsDir() {
		path = filepath.Join(path, ManifestFileName)
	}

	f, err := os.Open(path)
	if err != nil {
		return core.Manifest{}, err
	}
	defer f.Close()

	buf := bufio.NewReader(f)
	header, err := buf.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return core.Manifest{}, fmt.Errorf("error reading %s: %w", path, err)
	}

	var raw []byte
	if string(header) == "PK" {
		raw, err = readZipManifest(f)
	} else {
		raw, err = io.ReadAll(buf)
	}
	if err != nil {
		return core.Manifest{}, fmt.Errorf("error reading %s: %w", path, err)
	}

	manifest, err := core.ParseManifest(raw)
	if err != nil {
		return core.Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

func readZipManifest(f *os.File) ([]byte, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("error parsing zip: %w", err)
	}

	for _, v := range zr.File {
		if v.Name != ManifestFileName {
			continue
		}
		rc, err := v.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var out bytes.Buffer
		if _, err := io.Copy(&out, rc); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	return nil, errors.New("can't find manifest.json, is this a valid pack?")
}
