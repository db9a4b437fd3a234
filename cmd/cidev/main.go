// cidev runs the CI and release steps of the workflow project.
package main

import (
	"os"

	"github.com/hupe1980/cidev/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
