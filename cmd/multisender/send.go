package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"multisender/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newSendCmd(c *cli) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one batch described by a file",
		Long: `send reads a batch file whose first line is the total amount in whole units and whose
following lines are primary-chain recipient addresses, then splits the total between them in
one multisend call and waits for the receipt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd.Context(), c, file, dryRun)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "batch file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the per-recipient estimate without sending")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSend(ctx context.Context, c *cli, file string, dryRun bool) error {
	text, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	app, err := newApplication(c.cfg, c.log)
	if err != nil {
		return err
	}
	defer app.close()

	helper := app.form.Edit(string(text))
	fmt.Println(helper)
	if dryRun {
		return nil
	}

	if _, err := app.connect(ctx); err != nil {
		return err
	}
	ticket, err := app.form.Send(ctx)
	if err != nil {
		return err
	}
	c.log.Info("Waiting for the batch to settle", zap.String("ticket", ticket.ID))

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout())
	defer cancel()
	settled, err := app.submitter.Wait(waitCtx, ticket.ID)
	if err != nil {
		return fmt.Errorf("ticket %s did not settle: %w", ticket.ID, err)
	}

	out, err := json.MarshalIndent(settled, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if settled.State == entity.TransferRejected {
		return errors.New(settled.Err)
	}
	return nil
}
