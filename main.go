/*
Copyright © 2026 Micromachine
*/
package main

import (
	"log/slog"

	"micromachine.dev/bundlekit/cmd"
	"micromachine.dev/bundlekit/lib/utils"
)

var Version = "dev"

func main() {
	slog.SetDefault(slog.New(utils.NewColorHandler()))
	cmd.Version = Version
	cmd.Execute()
}
