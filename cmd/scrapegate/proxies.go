package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrapegate/internal/proxystore"
	"scrapegate/pkg/logger"
)

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Inspect the proxies flat file",
}

var proxiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the proxies the gateway would load",
	RunE:  runProxiesList,
}

func init() {
	rootCmd.AddCommand(proxiesCmd)
	proxiesCmd.AddCommand(proxiesListCmd)
}

func runProxiesList(cmd *cobra.Command, args []string) error {
	geo := geoLookup(cfg.Paths.GeoIPDB, logger.GetLogger())
	store := proxystore.New(geo, nil)
	if err := store.Load(cfg.Paths.ProxiesTxt); err != nil {
		return err
	}

	proxies := store.List()
	fmt.Printf("%d proxy(ies) in %s\n\n", len(proxies), cfg.Paths.ProxiesTxt)
	for _, p := range proxies {
		country := p.Country
		if country == "" {
			country = "--"
		}
		fmt.Printf("  %-20s %-6s %s\n", p.Host, p.Port, country)
	}
	return nil
}
