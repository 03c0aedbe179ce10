package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leocov-dev/curse2nix/core"
)

const legacyBaseURL = "https://addons-ecs.forgesvc.net/api/v2"

func init() {
	core.AddSource("legacy", NewLegacyClient)
}

// LegacyClient talks to the keyless addon API the CurseForge launcher used.
type LegacyClient struct {
	baseURL string
	fetcher *core.Fetcher
}

func NewLegacyClient(cfg core.SourceConfig) (core.AddonSource, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = legacyBaseURL
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = core.NewFetcher()
	}
	return &LegacyClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		fetcher: fetcher,
	}, nil
}

func (c *LegacyClient) GetName() string {
	return "legacy"
}

type legacyAddon struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	WebsiteURL string `json:"websiteUrl"`
}

func (c *LegacyClient) GetAddonInfo(ctx context.Context, projectID uint32) (core.AddonInfo, error) {
	var addon legacyAddon
	url := fmt.Sprintf("%s/addon/%d", c.baseURL, projectID)
	if err := c.fetcher.GetJSON(ctx, url, &addon); err != nil {
		return core.AddonInfo{}, err
	}
	if addon.Name == "" {
		return core.AddonInfo{}, fmt.Errorf("addon %d: response has no name", projectID)
	}

	return core.AddonInfo{
		ID:         projectID,
		Name:       addon.Name,
		Slug:       addon.Slug,
		WebsiteURL: addon.WebsiteURL,
	}, nil
}

func (c *LegacyClient) GetDownloadURL(ctx context.Context, projectID, fileID uint32) (string, error) {
	url := fmt.Sprintf("%s/addon/%d/file/%d/download-url", c.baseURL, projectID, fileID)
	body, err := c.fetcher.GetText(ctx, url)
	if err != nil {
		return "", err
	}

	downloadURL := cleanDownloadURL(body)
	if downloadURL == "" {
		return "", errors.New("empty download URL")
	}
	return RewriteDownloadURL(downloadURL), nil
}
