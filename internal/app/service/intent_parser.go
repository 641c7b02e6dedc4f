package service

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

var amountPattern = regexp.MustCompile(`^[0-9]+$`)

// BatchIntentParser turns the raw batch text into a BatchIntent.
//
// The text is line oriented: the first non-blank line is the total amount in whole
// units, every later non-blank line is one recipient address on the primary chain.
type BatchIntentParser struct {
	translator port.AddressTranslator
	unit       string
}

// NewBatchIntentParser creates a parser that labels estimates with unit.
func NewBatchIntentParser(translator port.AddressTranslator, unit string) *BatchIntentParser {
	return &BatchIntentParser{translator: translator, unit: unit}
}

// Unit is the display unit used in helper text.
func (p *BatchIntentParser) Unit() string { return p.unit }

// Parse validates text and translates every recipient. The first bad recipient line aborts
// parsing with a *entity.RecipientError; no partial recipient list is returned.
func (p *BatchIntentParser) Parse(text string) (entity.BatchIntent, error) {
	var (
		total      *big.Int
		recipients []entity.ShortAddress
		sources    []common.Address
	)

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}

		if total == nil {
			if !amountPattern.MatchString(line) {
				return entity.BatchIntent{}, fmt.Errorf("%w: %q", entity.ErrInvalidAmount, line)
			}
			total, _ = new(big.Int).SetString(line, 10)
			continue
		}

		short, err := p.translator.ToShortAddress(line)
		if err != nil {
			return entity.BatchIntent{}, &entity.RecipientError{Line: i + 1, Input: line, Err: err}
		}
		recipients = append(recipients, short)
		sources = append(sources, common.HexToAddress(line))
	}

	if total == nil {
		return entity.BatchIntent{}, fmt.Errorf("%w: missing amount line", entity.ErrInvalidAmount)
	}
	if len(recipients) == 0 {
		return entity.BatchIntent{}, fmt.Errorf("%w: no recipients", entity.ErrInvalidRecipient)
	}

	return entity.BatchIntent{TotalAmount: total, Recipients: recipients, Sources: sources}, nil
}

// HelperText renders the per-recipient estimate, or a placeholder when parsing failed.
func (p *BatchIntentParser) HelperText(intent entity.BatchIntent, err error) string {
	if err != nil || !intent.Valid() {
		return fmt.Sprintf("- %s / Address", p.unit)
	}
	return fmt.Sprintf("%s %s / Address", intent.PerRecipientEstimate(), p.unit)
}
