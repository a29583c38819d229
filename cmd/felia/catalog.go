package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felemax/felia/config"
	"github.com/felemax/felia/internal/catalog"
	srv "github.com/felemax/felia/internal/server"
)

func catalogCMD() *cobra.Command {
	var cat = &cobra.Command{
		Use:   "catalog",
		Short: "Catalog utilities",
	}
	cat.AddCommand(catalogCheckCMD())
	return cat
}

// catalog check loads the configured backend and optionally runs a query
// against it, so operators can verify a CSV before pointing the server at it.
func catalogCheckCMD() *cobra.Command {
	var cfgPath string
	var query string
	var check = &cobra.Command{
		Use:   "check",
		Short: "Load the configured catalog and report entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			logger := log.New(cmd.ErrOrStderr(), "[CATALOG] ", log.LstdFlags)
			cat, _, err := srv.BuildCatalog(cfg, logger)
			if err != nil {
				return err
			}
			type counter interface{ Len() int }
			if c, ok := cat.(counter); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "backend=%s entries=%d\n", cfg.Catalog.Backend, c.Len())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "backend=%s\n", cfg.Catalog.Backend)
			}
			if query == "" {
				return nil
			}
			results := cat.Search(catalog.Query{Tokens: strings.Fields(query)})
			fmt.Fprintf(cmd.OutOrStdout(), "query=%q hits=%d\n", query, len(results))
			for i, e := range results {
				if i >= 10 {
					fmt.Fprintln(cmd.OutOrStdout(), "...")
					break
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s  qty=%.0f\n", e.Code, e.Name, e.QtyAvailable)
			}
			return nil
		},
	}
	check.Flags().StringVarP(&query, "query", "q", "", "run a token query against the loaded catalog")
	check.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return check
}
