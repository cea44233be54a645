package main

import (
	"github.com/Paintersrp/launchpad/internal/cli"
	"github.com/Paintersrp/launchpad/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
