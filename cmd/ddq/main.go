package main

import (
	"os"

	"github.com/vietddude/ddq/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
