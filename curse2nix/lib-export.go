package curse2nix

import (
	"github.com/leocov-dev/curse2nix/core"
	"github.com/leocov-dev/curse2nix/fileio"
	_ "github.com/leocov-dev/curse2nix/sources"
)

type Manifest = core.Manifest
type OutputManifest = core.OutputManifest
type ModEntry = core.ModEntry
type RetryPolicy = core.RetryPolicy

var (
	LoadManifest  = fileio.LoadManifest
	WriteManifest = fileio.WriteManifest
	SourceNames   = core.SourceNames
	ParseManifest = core.ParseManifest
)
