package main

import (
	"fmt"
	"os"

	"kbgraph/internal/cli"
)

func main() {
	if err := cli.NewCLI().Execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
