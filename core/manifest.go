package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Manifest is a CurseForge modpack manifest.json
type Manifest struct {
	ManifestType    string            `json:"manifestType,omitempty"`
	ManifestVersion int               `json:"manifestVersion,omitempty"`
	Name            string            `json:"name,omitempty"`
	Version         string            `json:"version,omitempty"`
	Author          string            `json:"author,omitempty"`
	Minecraft       MinecraftInstance `json:"minecraft"`
	Files           []ManifestFile    `json:"files"`
	Overrides       string            `json:"overrides,omitempty"`
}

type MinecraftInstance struct {
	Version    string      `json:"version"`
	ModLoaders []ModLoader `json:"modLoaders,omitempty"`
}

type ModLoader struct {
	ID      string `json:"id"`
	Primary bool   `json:"primary"`
}

type ManifestFile struct {
	ProjectID uint32 `json:"projectID"`
	FileID    uint32 `json:"fileID"`
	Required  bool   `json:"required"`
}

func (f ManifestFile) String() string {
	return fmt.Sprintf("project %d, file %d", f.ProjectID, f.FileID)
}

func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks the fields the conversion depends on. An empty files list
// is valid; a missing one is not.
func (m Manifest) Validate() error {
	if m.Minecraft.Version == "" {
		return errors.New("invalid manifest: missing minecraft.version")
	}
	if m.Files == nil {
		return errors.New("invalid manifest: missing files")
	}
	for i, f := range m.Files {
		if f.ProjectID == 0 || f.FileID == 0 {
			return fmt.Errorf("invalid manifest: files[%d] needs both projectID and fileID", i)
		}
	}
	return nil
}
