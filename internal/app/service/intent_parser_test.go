package service

import (
	"errors"
	"strings"
	"testing"

	"multisender/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidBatch(t *testing.T) {
	p := NewBatchIntentParser(testTranslator(), "CKB")

	text := "150\r\n" + alice + "\n\n  " + strings.ToLower(bob) + "  \n" + carol + "\n"
	intent, err := p.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "150", intent.TotalAmount.String())
	assert.Equal(t, []entity.ShortAddress{shortOf(t, alice), shortOf(t, bob), shortOf(t, carol)}, intent.Recipients)
	assert.Equal(t, bob, intent.Sources[1].Hex())
	assert.Equal(t, "50 CKB / Address", p.HelperText(intent, err))
}

func TestParseSplitsHundredBetweenTwo(t *testing.T) {
	p := NewBatchIntentParser(testTranslator(), "CKB")

	text := "100\n0x6486143EC7255b3C0351dFbab76efb1Fb05F5c8e\n0x4eA18a61c1F1b644439680c035DB7eF50De234f9\n"
	intent, err := p.Parse(text)
	require.NoError(t, err)

	require.Len(t, intent.Recipients, 2)
	assert.Equal(t, "50", intent.PerRecipientEstimate().String())
	assert.Equal(t, "50 CKB / Address", p.HelperText(intent, err))
}

func TestParseIsIdempotent(t *testing.T) {
	p := NewBatchIntentParser(testTranslator(), "CKB")
	text := "100\n" + alice + "\n" + bob + "\n" + carol

	first, err1 := p.Parse(text)
	second, err2 := p.Parse(text)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, "33 CKB / Address", p.HelperText(first, nil))
}

func TestParseAmountErrors(t *testing.T) {
	p := NewBatchIntentParser(testTranslator(), "CKB")

	for _, text := range []string{"", "\n \n", "1.5\n" + alice, "-3\n" + alice, "ten\n" + alice, "1e3\n" + alice} {
		_, err := p.Parse(text)
		assert.ErrorIs(t, err, entity.ErrInvalidAmount, "input %q", text)
		assert.Equal(t, "- CKB / Address", p.HelperText(entity.BatchIntent{}, err))
	}
}

func TestParseRecipientErrors(t *testing.T) {
	p := NewBatchIntentParser(testTranslator(), "CKB")

	intent, err := p.Parse("100\n" + alice + "\n\n0xnot-an-address\n" + bob)
	assert.ErrorIs(t, err, entity.ErrInvalidRecipient)
	assert.ErrorIs(t, err, entity.ErrInvalidAddressFormat)
	assert.Empty(t, intent.Recipients, "no partial recipient list")

	var re *entity.RecipientError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 4, re.Line)
	assert.Equal(t, "0xnot-an-address", re.Input)

	_, err = p.Parse("100\n")
	assert.ErrorIs(t, err, entity.ErrInvalidRecipient)
	assert.False(t, errors.As(err, &re), "missing recipients is not a line error")

	_, err = p.Parse("100\n0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD")
	assert.ErrorIs(t, err, entity.ErrInvalidRecipient, "bad checksum")
}

func TestParseZeroAmount(t *testing.T) {
	p := NewBatchIntentParser(testTranslator(), "CKB")
	intent, err := p.Parse("0\n" + alice)
	require.NoError(t, err)
	assert.Equal(t, "0 CKB / Address", p.HelperText(intent, nil))
}
