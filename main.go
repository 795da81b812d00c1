// Package main is the entry point for the meteodata-server daemon.
package main

import (
	"fmt"
	"os"

	"meteodata.example/meteodata-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
