// Package main is the entry point of the vitals CLI.
package main

import (
	"github.com/huangsam/vitals/cmd"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)

	err := cmd.Execute()
	iocache.CloseStores()
	if shutdownErr := cmd.Shutdown(); shutdownErr != nil {
		contract.LogWarn("Cannot stop profiling", shutdownErr)
	}
	if err != nil {
		contract.LogFatal("Cannot run command", err)
	}
}
