// Package main is the entry point for the sheetlink CLI.
package main

import (
	"sheetlink/cli/cmd"
)

func main() {
	cmd.Execute()
}
