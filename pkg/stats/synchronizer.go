// Package stats synchronizes trade statistics from the partner API and the
// public scan API into the document store.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/external"
	"github.com/chaintex/trade-processor/pkg/store"
)

// PartnerAPI provides partner trade statistics.
type PartnerAPI interface {
	TradeStats(ctx context.Context) ([]external.ConstTradeStat, error)
}

// ScanAPI provides paginated transaction listings from the public explorer.
type ScanAPI interface {
	PageCount(ctx context.Context, perPage int64) (int64, error)
	Transactions(ctx context.Context, page, limit int64) (int64, []external.ScanTx, error)
	InternalTransactions(ctx context.Context, hash string) ([]external.InternalTx, error)
}

// TradeStatStore persists partner trade statistics snapshots.
type TradeStatStore interface {
	ReplaceAll(ctx context.Context, category string, items []store.TradeStat) error
}

// TxStore persists scanned transactions.
type TxStore interface {
	Upsert(ctx context.Context, tx *store.Tx) error
}

// SettingsStore persists the page cursor.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*store.Setting, error)
	SetPage(ctx context.Context, key, value string, pages int64) error
}

// Synchronizer runs one synchronization pass per invocation: a full
// replacement of the partner statistics snapshot and one page of the scan
// API transaction walk.
type Synchronizer struct {
	log      logrus.FieldLogger
	config   *Config
	partner  PartnerAPI
	scan     ScanAPI
	trades   TradeStatStore
	txs      TxStore
	settings SettingsStore
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(
	log logrus.FieldLogger,
	config *Config,
	partner PartnerAPI,
	scan ScanAPI,
	trades TradeStatStore,
	txs TxStore,
	settings SettingsStore,
) *Synchronizer {
	return &Synchronizer{
		log:      log.WithField("component", "stats"),
		config:   config,
		partner:  partner,
		scan:     scan,
		trades:   trades,
		txs:      txs,
		settings: settings,
	}
}

// Sync runs both sub-syncs. Each runs regardless of the other's outcome so
// a partner outage does not stall the transaction walk; any failure is
// still reported so the queue retries the task.
func (s *Synchronizer) Sync(ctx context.Context) error {
	var errs []error

	if err := s.syncPartnerStats(ctx); err != nil {
		s.log.WithError(err).Warn("Partner stats sync failed, keeping previous snapshot")
		common.SyncRuns.WithLabelValues("partner", "error").Inc()

		errs = append(errs, fmt.Errorf("partner stats: %w", err))
	} else {
		common.SyncRuns.WithLabelValues("partner", "success").Inc()
	}

	if err := s.syncScanPage(ctx); err != nil {
		s.log.WithError(err).Warn("Scan page sync failed")
		common.SyncRuns.WithLabelValues("scan", "error").Inc()

		errs = append(errs, fmt.Errorf("scan page: %w", err))
	} else {
		common.SyncRuns.WithLabelValues("scan", "success").Inc()
	}

	return errors.Join(errs...)
}

// syncPartnerStats replaces the stored partner snapshot with the API's
// current dataset. The previous snapshot is only discarded once the fetch
// has succeeded.
func (s *Synchronizer) syncPartnerStats(ctx context.Context) error {
	items, err := s.partner.TradeStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch partner trade stats: %w", err)
	}

	now := time.Now().UTC()

	rows := make([]store.TradeStat, 0, len(items))
	for _, item := range items {
		rows = append(rows, store.TradeStat{
			Type:      CategoryConst,
			From:      item.ReferralCode,
			Volume:    item.Amount,
			Txs:       1,
			CreatedAt: now,
		})
	}

	if err := s.trades.ReplaceAll(ctx, CategoryConst, rows); err != nil {
		return fmt.Errorf("failed to replace trade stats: %w", err)
	}

	s.log.WithField("rows", len(rows)).Debug("Replaced partner trade stats")

	return nil
}

// syncScanPage advances the backward page walk by one page, persisting the
// cursor only after every transaction on the page has been stored.
func (s *Synchronizer) syncScanPage(ctx context.Context) error {
	pageCount, err := s.scan.PageCount(ctx, s.config.PerPage)
	if err != nil {
		return fmt.Errorf("failed to fetch page count: %w", err)
	}

	cur, err := s.loadCursor(ctx)
	if err != nil {
		return err
	}

	page := nextPage(cur, pageCount)
	if page <= 0 {
		s.log.Debug("Scan walk is caught up")

		return nil
	}

	_, items, err := s.scan.Transactions(ctx, page, s.config.PerPage)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions page %d: %w", page, err)
	}

	for _, item := range items {
		if err := s.storeTx(ctx, &item); err != nil {
			return err
		}
	}

	if err := s.settings.SetPage(ctx, SettingKeyPageSync, strconv.FormatInt(page, 10), pageCount); err != nil {
		return fmt.Errorf("failed to persist page cursor: %w", err)
	}

	common.SyncPageCursor.WithLabelValues("page").Set(float64(page))
	common.SyncPageCursor.WithLabelValues("pages").Set(float64(pageCount))

	s.log.WithFields(logrus.Fields{
		"page":  page,
		"pages": pageCount,
		"txs":   len(items),
	}).Info("Synced scan page")

	return nil
}

func (s *Synchronizer) loadCursor(ctx context.Context) (*pageCursor, error) {
	setting, err := s.settings.Get(ctx, SettingKeyPageSync)
	if err != nil {
		return nil, fmt.Errorf("failed to load page cursor: %w", err)
	}

	if setting == nil {
		return nil, nil
	}

	page, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid page cursor %q: %w", setting.Value, err)
	}

	return &pageCursor{page: page, pages: setting.Pages}, nil
}

func (s *Synchronizer) storeTx(ctx context.Context, item *external.ScanTx) error {
	internalValue := "0"

	if item.InternalTxCount > 0 {
		internal, err := s.scan.InternalTransactions(ctx, item.Hash)
		if err != nil {
			return fmt.Errorf("failed to fetch internal txs for %s: %w", item.Hash, err)
		}

		if len(internal) > 0 {
			internalValue = internal[0].Value
		}
	}

	tx := &store.Tx{
		Hash:            item.Hash,
		From:            item.From,
		To:              item.To,
		Value:           item.Value,
		InternalValue:   internalValue,
		RealValue:       RealValue(item.Value, internalValue),
		BlockNumber:     item.BlockNumber,
		Timestamp:       time.Unix(item.Timestamp, 0).UTC(),
		IsPending:       false,
		InternalTxCount: item.InternalTxCount,
	}

	if err := s.txs.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("failed to upsert tx %s: %w", item.Hash, err)
	}

	return nil
}
