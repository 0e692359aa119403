package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"escrowScope/internal/agreements"
	"escrowScope/internal/indexer"
	"escrowScope/internal/model"
)

func runAgreement(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := parseID(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.resolver.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("agreement %s: %w", id, err)
	}
	if err := a.exportAgreements(ctx, []model.AggregateState{state}); err != nil {
		return err
	}
	return printJSON(state)
}

func runAgreements(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rawOwner, _ := cmd.Flags().GetString("owner")
	owner, err := indexer.ParseAddress(rawOwner)
	if err != nil {
		return err
	}
	refetch, _ := cmd.Flags().GetBool("refetch")

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var result agreements.Result
	if refetch {
		result, err = a.resolver.Refetch(ctx, owner)
	} else {
		result, err = a.resolver.List(ctx, owner)
	}
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		a.logger.Warn("some agreements could not be loaded",
			zap.Int("loaded", len(result.Items)),
			zap.Int("total", result.Total),
		)
	}
	if err := a.exportAgreements(ctx, result.Items); err != nil {
		return err
	}
	return printJSON(result)
}

func (a *app) exportAgreements(ctx context.Context, states []model.AggregateState) error {
	if a.sink == nil || len(states) == 0 {
		return nil
	}
	if err := a.sink.PutAgreements(ctx, states); err != nil {
		return fmt.Errorf("export agreements: %w", err)
	}
	return nil
}
