package main

import (
	"fmt"

	"multisender/internal/app/service"

	"github.com/spf13/cobra"
)

func newTranslateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <address>...",
		Short: "Print the rollup short address of primary-chain addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := newApplication(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer app.close()

			for _, addr := range args {
				short, err := app.translator.ToShortAddress(addr)
				if err != nil {
					return fmt.Errorf("%s: %w", addr, err)
				}
				fmt.Printf("%s\t%s\n", addr, short.Hex())
			}
			return nil
		},
	}
}

func newDepositAddressCmd(c *cli) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "deposit-address",
		Short: "Print the primary-chain deposit address crediting a rollup account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer app.close()

			if address == "" {
				wallet, err := app.wallets.GetWallet()
				if err != nil {
					return fmt.Errorf("no --address given and no wallet: %w", err)
				}
				address = wallet.Address().Hex()
			}
			deposit, err := service.ResolveDepositAddress(cmd.Context(), app.networks, app.clients, app.translator, address)
			if err != nil {
				return err
			}
			fmt.Println(deposit)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "primary-chain owner address (defaults to the wallet)")
	return cmd
}
