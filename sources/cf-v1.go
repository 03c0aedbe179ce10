package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leocov-dev/curse2nix/config"
	"github.com/leocov-dev/curse2nix/core"
)

const v1BaseURL = "https://api.curseforge.com/v1"

func init() {
	core.AddSource("v1", NewV1Client)
}

// V1Client talks to the current CurseForge API, which needs an API key.
type V1Client struct {
	baseURL string
	fetcher *core.Fetcher
}

func NewV1Client(cfg core.SourceConfig) (core.AddonSource, error) {
	key := cfg.APIKey
	if key == "" {
		decoded, err := config.DecodeCfApiKey()
		if err != nil {
			return nil, fmt.Errorf("the v1 API needs an API key: %w", err)
		}
		key = decoded
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = v1BaseURL
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = core.NewFetcher()
	}
	return &V1Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		fetcher: fetcher.WithHeader("x-api-key", key),
	}, nil
}

func (c *V1Client) GetName() string {
	return "v1"
}

type v1ModInfo struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Links struct {
		WebsiteURL string `json:"websiteUrl"`
	} `json:"links"`
}

func (c *V1Client) GetAddonInfo(ctx context.Context, projectID uint32) (core.AddonInfo, error) {
	var res struct {
		Data *v1ModInfo `json:"data"`
	}
	url := fmt.Sprintf("%s/mods/%d", c.baseURL, projectID)
	if err := c.fetcher.GetJSON(ctx, url, &res); err != nil {
		return core.AddonInfo{}, err
	}
	if res.Data == nil || res.Data.Name == "" {
		return core.AddonInfo{}, fmt.Errorf("mod %d: response has no data", projectID)
	}

	return core.AddonInfo{
		ID:         projectID,
		Name:       res.Data.Name,
		Slug:       res.Data.Slug,
		WebsiteURL: res.Data.Links.WebsiteURL,
	}, nil
}

func (c *V1Client) GetDownloadURL(ctx context.Context, projectID, fileID uint32) (string, error) {
	var res struct {
		Data string `json:"data"`
	}
	url := fmt.Sprintf("%s/mods/%d/files/%d/download-url", c.baseURL, projectID, fileID)
	if err := c.fetcher.GetJSON(ctx, url, &res); err != nil {
		return "", err
	}

	downloadURL := cleanDownloadURL(res.Data)
	if downloadURL == "" {
		// Projects that opted out of third-party distribution have no URL
		return "", errors.New("no download URL, the author may have disabled third-party downloads")
	}
	return RewriteDownloadURL(downloadURL), nil
}
