package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"escrowScope/internal/history"
	"escrowScope/internal/indexer"
	"escrowScope/internal/model"
)

func runPayments(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rawIDs, _ := cmd.Flags().GetStringSlice("ids")
	ids, err := indexer.ParseSubjectIDs(rawIDs)
	if err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")
	refresh, _ := cmd.Flags().GetBool("refresh")

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := a.tracker(indexer.Query{Kind: model.EventPaymentReleased, Subjects: ids})
	defer tracker.Close()

	// Opened before the backfill so events mined during the scan are not missed.
	if watch {
		a.logger.Info("watching payments", zap.Int("agreements", len(ids)))
		err = tracker.Watch(ctx, func(batch []model.EventRecord, s history.Snapshot) {
			if err := a.export(ctx, batch); err != nil {
				a.logger.Warn("export failed", zap.Error(err))
			}
			if err := printJSON(s); err != nil {
				a.logger.Warn("print failed", zap.Error(err))
			}
		}, func(err error) {
			a.logger.Error("payment watch failed", zap.Error(err))
		})
		if err != nil {
			return fmt.Errorf("watch payments: %w", err)
		}
	}

	snapshot, err := loadSnapshot(ctx, tracker, refresh)
	if err != nil && len(snapshot.Records) == 0 {
		return err
	}
	if err != nil {
		a.logger.Warn("showing stale payment history", zap.Error(err))
	}
	if !snapshot.Cached {
		if err := a.export(ctx, snapshot.Records); err != nil {
			return err
		}
	}
	if err := printJSON(snapshot); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	<-ctx.Done()
	return nil
}

func loadSnapshot(ctx context.Context, tracker *history.Tracker, refresh bool) (history.Snapshot, error) {
	if refresh {
		return tracker.Refresh(ctx)
	}
	return tracker.Records(ctx)
}

func (a *app) export(ctx context.Context, records []model.EventRecord) error {
	if a.sink == nil || len(records) == 0 {
		return nil
	}
	if err := a.sink.PutEventBatch(ctx, records); err != nil {
		return fmt.Errorf("export events: %w", err)
	}
	return nil
}
