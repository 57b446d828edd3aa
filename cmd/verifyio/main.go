package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "verifyio",
		Short:   "Verify MPI trace synchronization against a consistency semantics",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newVerifyCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
