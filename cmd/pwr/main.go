package main

import (
	"os"

	"github.com/oremus-labs/ol-power-client/internal/pwrcli"
)

func main() {
	if err := pwrcli.Execute(); err != nil {
		os.Exit(1)
	}
}
