// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "hlsgate",
		Short: "hlsgate is an HLS rewrite and decryption proxy",
	}
	root.AddCommand(serveCmd, signCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
