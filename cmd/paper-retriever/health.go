// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the search backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.close()

		if err := a.client.Health(context.Background()); err != nil {
			return fmt.Errorf("backend is not healthy: %w", err)
		}
		fmt.Println("Backend is healthy.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
