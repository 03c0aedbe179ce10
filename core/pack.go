package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	FormatNix  = "nix"
	FormatToml = "toml"
)

// OutputManifest is the converted mod list; Mods keeps manifest order.
type OutputManifest struct {
	Version string
	Mods    []ModEntry
}

func (o OutputManifest) Render(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatNix, "":
		return []byte(o.AsNix()), nil
	case FormatToml:
		return o.AsToml()
	}
	return nil, fmt.Errorf("unknown output format %q (expected %s or %s)", format, FormatNix, FormatToml)
}

func (o OutputManifest) AsNix() string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString(`    "version" = ` + nixString(o.Version) + ";\n")
	b.WriteString(`    "imports" = [];` + "\n")
	b.WriteString(`    "mods" = {` + "\n")
	for _, m := range o.Mods {
		b.WriteString("        " + m.Nix() + "\n")
	}
	b.WriteString("    };\n")
	b.WriteString("}\n")
	return b.String()
}

type tomlManifest struct {
	Version string             `toml:"version"`
	Imports []string           `toml:"imports"`
	Mods    map[string]tomlMod `toml:"mods"`
}

type tomlMod struct {
	Title       string                            `toml:"title"`
	Name        string                            `toml:"name"`
	ID          string                            `toml:"id"`
	Side        string                            `toml:"side"`
	Required    bool                              `toml:"required"`
	Default     bool                              `toml:"default"`
	Deps        []string                          `toml:"deps"`
	FileName    string                            `toml:"filename"`
	Encoded     string                            `toml:"encoded"`
	Page        string                            `toml:"page"`
	Src         string                            `toml:"src"`
	Type        string                            `toml:"type"`
	Size        int64                             `toml:"size"`
	MD5         string                            `toml:"md5"`
	SHA256      string                            `toml:"sha256"`
	Fingerprint string                            `toml:"fingerprint,omitempty"`
	Update      map[string]map[string]interface{} `toml:"update"`
}

// AsToml renders the same data as AsNix, with mods keyed by slug and the
// CurseForge ids under update.curseforge. Mod tables come out sorted by
// slug, not in manifest order.
func (o OutputManifest) AsToml() ([]byte, error) {
	repr := tomlManifest{
		Version: o.Version,
		Imports: []string{},
		Mods:    make(map[string]tomlMod, len(o.Mods)),
	}
	for _, m := range o.Mods {
		update, err := m.UpdateData().ToMap()
		if err != nil {
			return nil, err
		}
		repr.Mods[m.Slug] = tomlMod{
			Title:       m.Title,
			Name:        m.Slug,
			ID:          strconv.FormatUint(uint64(m.ProjectID), 10),
			Side:        string(m.Side),
			Required:    m.Required,
			Default:     m.Default,
			Deps:        m.Deps,
			FileName:    m.FileName,
			Encoded:     m.Encoded,
			Page:        m.Page,
			Src:         m.Src,
			Type:        m.Type,
			Size:        m.Size,
			MD5:         m.MD5,
			SHA256:      m.SHA256,
			Fingerprint: m.Fingerprint,
			Update:      map[string]map[string]interface{}{"curseforge": update},
		}
	}
	return toml.Marshal(repr)
}
