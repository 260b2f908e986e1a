package main

import (
	"github.com/spf13/cobra"

	"elpais-crawler/internal/httpx"
)

func newFetchCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [url]",
		Short: "Fetch a page over plain HTTP and print its body (defaults to the opinion section)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			target := cfg.Site.OpinionURL
			if len(args) == 1 {
				target = args[0]
			}

			client, err := httpx.NewClient(httpx.Options{Timeout: cfg.Browser.PageTimeout.Duration})
			if err != nil {
				return err
			}
			headers := map[string]string{"Accept-Language": "es-ES,es;q=0.9"}
			if cfg.Browser.UserAgent != "" {
				headers["User-Agent"] = cfg.Browser.UserAgent
			}

			// A non-2xx status surfaces as *httpx.StatusError and a non-zero exit.
			body, _, err := httpx.Get(cmd.Context(), client, target, headers, httpx.DefaultMaxBodyBytes)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
}
