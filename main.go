package main

import (
	"github.com/leocov-dev/curse2nix/cmd"
	"github.com/leocov-dev/curse2nix/config"
)

var Version string
var CfApiKey string

func main() {
	config.SetVersion(Version)
	config.SetCurseforgeApiKey(CfApiKey)
	cmd.Execute()
}
