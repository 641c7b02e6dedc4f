package main

import (
	"fmt"

	"multisender/internal/infrastructure/walletloader"

	"github.com/spf13/cobra"
)

func newBalancesCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Report the balances of every address listed in a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addresses, err := walletloader.LoadAddresses(file)
			if err != nil {
				return err
			}
			app, err := newApplication(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer app.close()

			reports, err := app.reporter.Report(cmd.Context(), c.cfg.ActiveNetwork, addresses)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(reports, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one primary-chain address per line")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
