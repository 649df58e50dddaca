package main

import (
	"os"

	"github.com/kdltmhl/mc-ip-scanner/cli"
)

func main() {
	os.Exit(cli.Run())
}
