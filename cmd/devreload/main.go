// devreload serves a directory and reloads connected browsers on changes.
package main

import (
	"os"

	"github.com/hupe1980/devreload/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
