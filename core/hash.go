package core

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"github.com/leocov-dev/curse2nix/core/murmur2"
)

const (
	HashMD5         = "md5"
	HashSHA256      = "sha256"
	HashFingerprint = "murmur2"
)

// GetHashImpl gets an implementation of hash.Hash for the given hash type string
func GetHashImpl(hashType string) (HashStringer, error) {
	switch strings.ToLower(hashType) {
	case HashSHA256:
		return &hexStringer{sha256.New()}, nil
	case HashMD5:
		return &hexStringer{md5.New()}, nil
	case HashFingerprint: // CurseForge variant
		return &number32As64Stringer{murmur2.New()}, nil
	}
	return nil, fmt.Errorf("hash implementation %s not found", hashType)
}

type HashStringer interface {
	hash.Hash
	String() string
}

type hexStringer struct {
	hash.Hash
}

func (h *hexStringer) String() string {
	return hex.EncodeToString(h.Sum(nil))
}

type number32As64Stringer struct {
	hash.Hash
}

func (h *number32As64Stringer) String() string {
	return strconv.FormatUint(uint64(binary.BigEndian.Uint32(h.Sum(nil))), 10)
}

type LengthHasher struct {
	length uint64
}

func (h *LengthHasher) Write(p []byte) (n int, err error) {
	h.length += uint64(len(p))
	return len(p), nil
}

func (h *LengthHasher) Sum(b []byte) []byte {
	ext := append(b, make([]byte, 8)...)
	binary.BigEndian.PutUint64(ext[len(b):], h.length)
	return ext
}

func (h *LengthHasher) Size() int {
	return 8
}

func (h *LengthHasher) BlockSize() int {
	return 1
}

func (h *LengthHasher) Reset() {
	h.length = 0
}

// FileHasher feeds one stream into several hashes and a byte counter.
// It satisfies DownloadSink so a failed download attempt can start over.
type FileHasher struct {
	hashes map[string]HashStringer
	length *LengthHasher
	w      io.Writer
}

func NewFileHasher(hashTypes ...string) (*FileHasher, error) {
	h := &FileHasher{
		hashes: make(map[string]HashStringer, len(hashTypes)),
		length: &LengthHasher{},
	}
	writers := []io.Writer{h.length}
	for _, t := range hashTypes {
		t = strings.ToLower(t)
		if _, ok := h.hashes[t]; ok {
			continue
		}
		impl, err := GetHashImpl(t)
		if err != nil {
			return nil, err
		}
		h.hashes[t] = impl
		writers = append(writers, impl)
	}
	h.w = io.MultiWriter(writers...)
	return h, nil
}

func (h *FileHasher) Write(p []byte) (int, error) {
	return h.w.Write(p)
}

func (h *FileHasher) Reset() {
	h.length.Reset()
	for _, impl := range h.hashes {
		impl.Reset()
	}
}

// Len returns the number of bytes written since the last Reset.
func (h *FileHasher) Len() int64 {
	return int64(h.length.length)
}

// Sum returns the string form of the named hash, or "" if it is not tracked.
func (h *FileHasher) Sum(hashType string) string {
	impl, ok := h.hashes[strings.ToLower(hashType)]
	if !ok {
		return ""
	}
	return impl.String()
}
