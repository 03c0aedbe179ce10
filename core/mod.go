package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type ModSide string

// Converted mods are always installed on both sides.
const UniversalSide ModSide = "both"

// AddonInfo is the project metadata returned by the addon API.
type AddonInfo struct {
	ID         uint32
	Name       string
	Slug       string
	WebsiteURL string
}

// ModEntry is one record of the generated mod list.
type ModEntry struct {
	Slug        string
	Title       string
	ProjectID   uint32
	FileID      uint32
	Side        ModSide
	Required    bool
	Default     bool
	Deps        []string
	FileName    string
	Encoded     string
	Page        string
	Src         string
	Type        string
	Size        int64
	MD5         string
	SHA256      string
	Fingerprint string
}

// NewModEntry combines project metadata and file details into an entry with
// the fixed defaults every converted mod gets.
func NewModEntry(projectID, fileID uint32, addon AddonInfo, file FileInfo, downloadURL string) (ModEntry, error) {
	slug, err := entrySlug(addon)
	if err != nil {
		return ModEntry{}, fmt.Errorf("project %d: %w", projectID, err)
	}

	return ModEntry{
		Slug:        slug,
		Title:       addon.Name,
		ProjectID:   projectID,
		FileID:      fileID,
		Side:        UniversalSide,
		Required:    true,
		Default:     true,
		Deps:        []string{},
		FileName:    file.FileName,
		Encoded:     file.EncodedFileName,
		Page:        "",
		Src:         downloadURL,
		Type:        "remote",
		Size:        file.Size,
		MD5:         file.MD5,
		SHA256:      file.SHA256,
		Fingerprint: file.Fingerprint,
	}, nil
}

func entrySlug(addon AddonInfo) (string, error) {
	slug, ok := SlugFromWebsiteURL(addon.WebsiteURL)
	if slug != "" {
		return slug, nil
	}
	if addon.Slug != "" {
		return addon.Slug, nil
	}
	if s := SlugifyName(addon.Name); s != "" {
		return s, nil
	}
	if !ok {
		return "", fmt.Errorf("cannot derive a slug from website URL %q", addon.WebsiteURL)
	}
	return "", fmt.Errorf("website URL %q does not end in a slug", addon.WebsiteURL)
}

var nixEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `${`, `\${`)

func nixString(s string) string {
	return `"` + nixEscaper.Replace(s) + `"`
}

func nixBool(b bool) string {
	return strconv.FormatBool(b)
}

// Nix renders the entry as one Nix attribute binding.
func (e ModEntry) Nix() string {
	var b strings.Builder

	b.WriteString(nixString(e.Slug))
	b.WriteString(" = {")
	field := func(name, value string) {
		b.WriteString(`"` + name + `"=` + value + "; ")
	}

	deps := make([]string, len(e.Deps))
	for i, d := range e.Deps {
		deps[i] = nixString(d)
	}

	field("title", nixString(e.Title))
	field("name", nixString(e.Slug))
	field("id", nixString(strconv.FormatUint(uint64(e.ProjectID), 10)))
	field("side", nixString(string(e.Side)))
	field("required", nixBool(e.Required))
	field("default", nixBool(e.Default))
	field("deps", "["+strings.Join(deps, " ")+"]")
	field("filename", nixString(e.FileName))
	field("encoded", nixString(e.Encoded))
	field("page", nixString(e.Page))
	field("src", nixString(e.Src))
	field("type", nixString(e.Type))
	field("size", strconv.FormatInt(e.Size, 10))
	field("md5", nixString(e.MD5))
	field("sha256", nixString(e.SHA256))
	if e.Fingerprint != "" {
		field("fingerprint", e.Fingerprint)
	}

	// The last field is written as `x; ` and the record closes as `x;};`
	out := strings.TrimSuffix(b.String(), " ")
	return out + "};"
}

type CfUpdateData struct {
	ProjectID uint32 `mapstructure:"project-id"`
	FileID    uint32 `mapstructure:"file-id"`
}

func (u CfUpdateData) ToMap() (map[string]interface{}, error) {
	newMap := make(map[string]interface{})
	err := mapstructure.Decode(u, &newMap)
	return newMap, err
}

func (e ModEntry) UpdateData() CfUpdateData {
	return CfUpdateData{
		ProjectID: e.ProjectID,
		FileID:    e.FileID,
	}
}
