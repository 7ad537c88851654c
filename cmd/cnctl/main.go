// Command cnctl previews contract schedules, manages events on a running
// scheduling API and applies database migrations.
package main

import (
	"os"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
