package service

import (
	"context"
	"sync"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
)

// WalletSource exposes the wallet of the active session, nil when none is connected.
type WalletSource interface {
	Wallet() port.Wallet
}

// FormView is what a caller renders for the transfer form.
type FormView struct {
	Text          string                `json:"text"`
	HelperText    string                `json:"helperText"`
	SubmitEnabled bool                  `json:"submitEnabled"`
	Ticket        entity.TransferTicket `json:"ticket"`
}

// TransferForm owns the raw batch text and decides when a batch may be sent. It allows one
// pending ticket at a time.
type TransferForm struct {
	parser    *BatchIntentParser
	submitter *BatchTransferSubmitter
	wallets   WalletSource
	logger    port.Logger

	mu       sync.Mutex
	text     string
	intent   entity.BatchIntent
	parseErr error
	helper   string
}

// NewTransferForm creates an empty form.
func NewTransferForm(parser *BatchIntentParser, submitter *BatchTransferSubmitter, wallets WalletSource, logger port.Logger) *TransferForm {
	f := &TransferForm{
		parser:    parser,
		submitter: submitter,
		wallets:   wallets,
		logger:    logger.With("component", "transfer_form"),
	}
	f.Edit("")
	return f
}

// Edit replaces the text, reparses it and returns the new helper text.
func (f *TransferForm) Edit(text string) string {
	intent, err := f.parser.Parse(text)
	helper := f.parser.HelperText(intent, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.intent = intent
	f.parseErr = err
	f.helper = helper
	return helper
}

// SubmitEnabled reports whether Send would submit right now.
func (f *TransferForm) SubmitEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyLocked() == nil
}

func (f *TransferForm) readyLocked() error {
	if f.submitter.Current().Pending() {
		return entity.ErrTransferPending
	}
	if !f.submitter.Bound() || f.wallets.Wallet() == nil {
		return entity.ErrNotReady
	}
	return f.parseErr
}

// Send submits the parsed batch. It fails with ErrTransferPending while the previous
// ticket is unsettled, ErrNotReady without a bound contract or wallet, and the parse error
// when the text is invalid.
func (f *TransferForm) Send(ctx context.Context) (entity.TransferTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.readyLocked(); err != nil {
		return f.submitter.Current(), err
	}

	ticket, err := f.submitter.Submit(ctx, f.intent, f.wallets.Wallet())
	if err != nil {
		f.logger.Warn("Batch submission refused", "error", err)
		return ticket, err
	}
	return ticket, nil
}

// View returns the current form state.
func (f *TransferForm) View() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormView{
		Text:          f.text,
		HelperText:    f.helper,
		SubmitEnabled: f.readyLocked() == nil,
		Ticket:        f.submitter.Current(),
	}
}
