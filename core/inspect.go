package core

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// FileInfo describes a downloaded mod file.
type FileInfo struct {
	FileName        string
	EncodedFileName string
	MD5             string
	SHA256          string
	Size            int64
	// Fingerprint is the CurseForge murmur2 fingerprint, empty unless requested.
	Fingerprint string
}

type InspectOptions struct {
	Fingerprint bool
}

// FileNameFromURL returns the text after the last "/" of downloadURL, both
// as-is and percent-decoded. A "+" is not treated as a space.
func FileNameFromURL(downloadURL string) (encoded string, decoded string) {
	encoded = downloadURL[strings.LastIndex(downloadURL, "/")+1:]
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		decoded = encoded
	}
	return encoded, decoded
}

// InspectFile downloads downloadURL and hashes it while streaming.
func InspectFile(ctx context.Context, fetcher *Fetcher, downloadURL string, opts InspectOptions) (FileInfo, error) {
	logger := zerolog.Ctx(ctx)

	hashTypes := []string{HashMD5, HashSHA256}
	if opts.Fingerprint {
		hashTypes = append(hashTypes, HashFingerprint)
	}
	hasher, err := NewFileHasher(hashTypes...)
	if err != nil {
		return FileInfo{}, err
	}

	logger.Info().Str("url", downloadURL).Msg("downloading file")
	size, err := fetcher.Download(ctx, downloadURL, hasher)
	if err != nil {
		return FileInfo{}, err
	}

	encoded, decoded := FileNameFromURL(downloadURL)
	info := FileInfo{
		FileName:        decoded,
		EncodedFileName: encoded,
		MD5:             hasher.Sum(HashMD5),
		SHA256:          hasher.Sum(HashSHA256),
		Size:            size,
		Fingerprint:     hasher.Sum(HashFingerprint),
	}
	logger.Info().Str("file", info.FileName).Int64("size", info.Size).Msg("finished processing file")

	return info, nil
}
