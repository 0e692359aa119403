package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"escrowScope/internal/history"
	"escrowScope/internal/model"
)

type disputeOutput struct {
	AgreementID string             `json:"agreement_id"`
	Found       bool               `json:"found"`
	Dispute     *model.EventRecord `json:"dispute,omitempty"`
}

func runDispute(cmd *cobra.Command, _ []string) error {
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

	record, found, err := history.LatestDispute(ctx, a.scanner, id, a.scanOptions())
	if err != nil {
		return err
	}
	out := disputeOutput{AgreementID: id.String(), Found: found}
	if found {
		out.Dispute = &record
		if err := a.export(ctx, []model.EventRecord{record}); err != nil {
			return err
		}
	}
	return printJSON(out)
}
