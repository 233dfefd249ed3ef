package main

import (
	"os"

	"github.com/ryabkov82/labmerge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
