package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"escrowScope/internal/history"
	"escrowScope/internal/indexer"
	"escrowScope/internal/model"
)

type rejectionsOutput struct {
	AgreementID string                 `json:"agreement_id"`
	Rejections  []model.RejectionEntry `json:"rejections"`
	Stale       bool                   `json:"stale"`
}

func runRejections(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	refresh, _ := cmd.Flags().GetBool("refresh")

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := a.tracker(indexer.Query{Kind: model.EventWorkRejected, Subjects: []*big.Int{id}})
	defer tracker.Close()

	snapshot, err := loadSnapshot(ctx, tracker, refresh)
	if err != nil && len(snapshot.Records) == 0 {
		return err
	}
	if err != nil {
		a.logger.Warn("showing stale rejection history", zap.Error(err))
	}
	if !snapshot.Cached {
		if err := a.export(ctx, snapshot.Records); err != nil {
			return err
		}
	}

	entries, err := history.Rejections(ctx, a.reader, id, snapshot.Records)
	if err != nil {
		return err
	}
	return printJSON(rejectionsOutput{
		AgreementID: id.String(),
		Rejections:  entries,
		Stale:       snapshot.Stale,
	})
}
