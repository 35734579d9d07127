package main

import (
	"os"

	"github.com/grovetools/deckclock/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:]))
}
