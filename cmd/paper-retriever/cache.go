// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage cached search results",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backend cache statistics and the local entry count",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from the local result cache",
	RunE:  runCacheClear,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete [search-id]",
	Short: "Delete one materialized result from the backend's store",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDelete,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheDeleteCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a := newApp()
	defer a.close()
	ctx := context.Background()

	stats, err := a.client.CacheStats(ctx)
	if err != nil {
		return err
	}

	// The statistics document is backend-defined; print it verbatim.
	var pretty json.RawMessage = stats
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pretty); err != nil {
		return err
	}

	if a.cache != nil {
		n, err := a.cache.Len(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("local entries: %d\n", n)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a := newApp()
	defer a.close()

	if a.cache == nil {
		return fmt.Errorf("local cache unavailable")
	}
	if err := a.cache.ClearAll(context.Background()); err != nil {
		return err
	}
	fmt.Println("Local cache cleared.")
	return nil
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	a := newApp()
	defer a.close()

	if err := a.client.DeleteCached(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s from the backend cache.\n", args[0])
	return nil
}
