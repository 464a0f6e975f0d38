package main

import (
	"os"

	"github.com/kestrelsync/kestrel/cmd/kestrel/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
