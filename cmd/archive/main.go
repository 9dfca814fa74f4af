package main

import (
	"fmt"
	"os"

	"github.com/vertixec/THEARCHIVE/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
