package main

import (
	"fmt"
	"os"

	"github.com/camden-git/peoplegraph/cli"
)

func main() {
	if err := cli.RootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
