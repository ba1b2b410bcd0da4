package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/hlsgate/internal/config"
	"github.com/ManuGH/hlsgate/internal/signing"
)

var signURL string

func init() {
	signCmd.Flags().StringVar(&signURL, "url", "", "URL to sign (required)")
	_ = signCmd.MarkFlagRequired("url")
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print the HMAC signature for a URL under SIGNING_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		key := signing.New(cfg.SigningKey)
		if !key.Enabled() {
			return fmt.Errorf("SIGNING_KEY is not configured")
		}
		fmt.Println(key.Sign(signURL))
		return nil
	},
}
