package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
	"multisender/internal/pkg/metrics"
	"multisender/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

const (
	DefaultGasLimit       uint64 = 6_000_000
	defaultConfirmTimeout        = 5 * time.Minute
)

// SubmitterConfig tunes how batches are sent.
type SubmitterConfig struct {
	// UnitDecimals scales the whole-unit total into the value sent with the call.
	UnitDecimals   int32
	GasLimit       uint64
	ConfirmTimeout time.Duration
}

// SettleHook runs after a ticket reaches Confirmed or Rejected.
type SettleHook func(ctx context.Context, ticket entity.TransferTicket)

// BatchTransferSubmitter sends a BatchIntent as one value-bearing multisend call and tracks
// the resulting ticket. It keeps only the latest ticket and runs settle hooks for it alone;
// callers wanting single-flight submission enforce it themselves.
type BatchTransferSubmitter struct {
	cfg    SubmitterConfig
	logger port.Logger

	mu       sync.Mutex
	contract port.MultiSendContract
	current  *flight
	hooks    []SettleHook
}

type flight struct {
	ticket entity.TransferTicket
	done   chan struct{}
}

// NewBatchTransferSubmitter creates an unbound submitter.
func NewBatchTransferSubmitter(cfg SubmitterConfig, logger port.Logger) *BatchTransferSubmitter {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	return &BatchTransferSubmitter{cfg: cfg, logger: logger.With("component", "transfer_submitter")}
}

// OnSettle registers a hook run after every settlement.
func (s *BatchTransferSubmitter) OnSettle(hook SettleHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Bind sets the contract used by later submissions.
func (s *BatchTransferSubmitter) Bind(contract port.MultiSendContract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contract = contract
}

// Unbind removes the contract; Submit returns ErrNotReady until the next Bind.
func (s *BatchTransferSubmitter) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contract = nil
}

// Bound reports whether a contract is bound.
func (s *BatchTransferSubmitter) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contract != nil
}

// Current returns the latest ticket, or an Idle ticket when nothing was submitted.
func (s *BatchTransferSubmitter) Current() entity.TransferTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return entity.TransferTicket{State: entity.TransferIdle}
	}
	return s.current.ticket
}

// Submit creates a Pending ticket and sends the batch in the background. It makes no chain
// call when the contract or wallet is missing.
func (s *BatchTransferSubmitter) Submit(ctx context.Context, intent entity.BatchIntent, from port.Wallet) (entity.TransferTicket, error) {
	s.mu.Lock()
	contract := s.contract
	s.mu.Unlock()

	if contract == nil || from == nil {
		return entity.TransferTicket{}, entity.ErrNotReady
	}
	if !intent.Valid() {
		return entity.TransferTicket{}, fmt.Errorf("%w: empty batch", entity.ErrInvalidRecipient)
	}

	now := time.Now()
	f := &flight{
		ticket: entity.TransferTicket{
			ID:        uuid.NewString(),
			State:     entity.TransferPending,
			Intent:    intent,
			From:      from.Address(),
			Value:     utils.ToMinorUnits(intent.TotalAmount, s.cfg.UnitDecimals),
			CreatedAt: now,
			UpdatedAt: now,
		},
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.current != nil && s.current.ticket.Pending() {
		s.logger.Warn("Replacing a pending ticket", "previous", s.current.ticket.ID, "next", f.ticket.ID)
	}
	s.current = f
	ticket := f.ticket
	s.mu.Unlock()

	metrics.Submissions.WithLabelValues(entity.TransferPending.String()).Inc()
	s.logger.Info("Batch submitted", "ticket", ticket.ID, "from", ticket.From.Hex(),
		"recipients", len(intent.Recipients), "value", ticket.Value.String(), "contract", contract.Address().Hex())

	go s.run(context.WithoutCancel(ctx), f, contract, from)
	return ticket, nil
}

// Wait blocks until ticket id settles or ctx is done.
func (s *BatchTransferSubmitter) Wait(ctx context.Context, id string) (entity.TransferTicket, error) {
	s.mu.Lock()
	f := s.current
	s.mu.Unlock()
	if f == nil || f.ticket.ID != id {
		return entity.TransferTicket{}, entity.ErrTicketNotFound
	}

	select {
	case <-f.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return f.ticket, nil
	case <-ctx.Done():
		return s.Current(), ctx.Err()
	}
}

func (s *BatchTransferSubmitter) run(ctx context.Context, f *flight, contract port.MultiSendContract, from port.Wallet) {
	opts, err := from.Transactor(contract.ChainID())
	if err != nil {
		s.settle(ctx, f, nil, fmt.Errorf("build transactor: %w", err))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	s.mu.Lock()
	intent, value := f.ticket.Intent, f.ticket.Value
	s.mu.Unlock()

	opts.Context = sendCtx
	opts.Value = value
	opts.GasLimit = s.cfg.GasLimit

	tx, err := contract.MultiSend(opts, intent.RecipientAddresses())
	if err != nil {
		s.settle(ctx, f, nil, fmt.Errorf("send multisend: %w", err))
		return
	}

	s.mu.Lock()
	f.ticket.TxHash = tx.Hash()
	f.ticket.UpdatedAt = time.Now()
	s.mu.Unlock()
	s.logger.Info("Batch transaction sent", "ticket", f.ticket.ID, "tx", tx.Hash().Hex())

	receipt, err := contract.WaitMined(sendCtx, tx)
	if err != nil {
		s.settle(ctx, f, nil, fmt.Errorf("wait for receipt: %w", err))
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		s.settle(ctx, f, receipt, errors.New("transaction reverted"))
		return
	}
	s.settle(ctx, f, receipt, nil)
}

func (s *BatchTransferSubmitter) settle(ctx context.Context, f *flight, receipt *types.Receipt, cause error) {
	s.mu.Lock()
	if receipt != nil {
		summary := &entity.ReceiptSummary{GasUsed: receipt.GasUsed, Status: receipt.Status}
		if receipt.BlockNumber != nil {
			summary.BlockNumber = receipt.BlockNumber.Uint64()
		}
		f.ticket.Receipt = summary
	}
	if cause != nil {
		f.ticket.State = entity.TransferRejected
		f.ticket.Err = fmt.Errorf("%w: %w", entity.ErrSubmissionRejected, cause).Error()
	} else {
		f.ticket.State = entity.TransferConfirmed
	}
	f.ticket.UpdatedAt = time.Now()
	ticket := f.ticket
	superseded := s.current != f
	hooks := append([]SettleHook(nil), s.hooks...)
	s.mu.Unlock()
	close(f.done)

	metrics.Submissions.WithLabelValues(ticket.State.String()).Inc()
	if cause != nil {
		s.logger.Warn("Batch rejected", "ticket", ticket.ID, "tx", ticket.TxHash.Hex(), "error", ticket.Err)
	} else {
		s.logger.Info("Batch confirmed", "ticket", ticket.ID, "tx", ticket.TxHash.Hex(), "block", ticket.Receipt.BlockNumber)
	}

	// A replaced ticket settles quietly; hooks only see the current one.
	if superseded {
		s.logger.Debug("Skipping settle hooks of a replaced ticket", "ticket", ticket.ID)
		return
	}
	for _, hook := range hooks {
		hook(ctx, ticket)
	}
}

// RefreshOnSettle re-reads balances once a batch settles.
func RefreshOnSettle(w *BalanceWatcher) SettleHook {
	return func(context.Context, entity.TransferTicket) {
		w.Refresh()
	}
}

// NotifyOnSettle forwards settled tickets to notifier, logging failures.
func NotifyOnSettle(notifier port.TransferNotifier, logger port.Logger) SettleHook {
	return func(ctx context.Context, ticket entity.TransferTicket) {
		if err := notifier.NotifyTransfer(ctx, ticket); err != nil {
			logger.Warn("Transfer notification failed", "ticket", ticket.ID, "error", err)
		}
	}
}
