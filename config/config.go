package config

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Set at build time with -ldflags "-X main.Version=... -X main.CfApiKey=..."
var (
	Version  string
	cfApiKey string
)

func SetVersion(version string) {
	if version == "" {
		version = "dev"
	}
	Version = version
}

// SetCurseforgeApiKey stores a base64 encoded key for the v1 API.
func SetCurseforgeApiKey(key string) {
	cfApiKey = key
}

var ErrNoApiKey = errors.New("no CurseForge API key configured")

func DecodeCfApiKey() (string, error) {
	if cfApiKey == "" {
		return "", ErrNoApiKey
	}
	k, err := base64.StdEncoding.DecodeString(cfApiKey)
	if err != nil {
		return "", fmt.Errorf("failed to decode CF API key: %w", err)
	}
	if len(k) == 0 {
		return "", ErrNoApiKey
	}
	return string(k), nil
}
