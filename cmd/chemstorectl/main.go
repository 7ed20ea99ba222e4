package main

import (
	"context"
	"os"

	"github.com/chemstore/chemstore/internal/cli/chemstorectl"
)

func main() {
	options := chemstorectl.Options{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(chemstorectl.Run(context.Background(), os.Args[1:], options))
}
