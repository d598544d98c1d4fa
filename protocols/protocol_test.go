package protocols

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Tarif-dev/Forge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fromWallet = "7xK9M2nP4sQ6tR8vW3aB5cD1eF2gH4iJ6kL8mN9oPqRs"
	toWallet   = "5yJ8LmN3pQ5qR7sT9uV2wX4aB6cD8eFgH2iJ4kL6mN7p"
)

func validTransfer(amount float64) TransferRequest {
	return TransferRequest{FromWallet: fromWallet, ToWallet: toWallet, Amount: amount}
}

func TestValidateWallet(t *testing.T) {
	cases := []struct {
		name    string
		address string
		ok      bool
	}{
		{"valid 44 chars", fromWallet, true},
		{"valid 43 chars", toWallet, true},
		{"empty", "", false},
		{"too short", "abc123", false},
		{"too long", strings.Repeat("a", 45), false},
		{"contains zero", strings.Repeat("a", 30) + "00", false},
		{"contains uppercase O", strings.Repeat("a", 30) + "OO", false},
		{"contains uppercase I", strings.Repeat("a", 30) + "II", false},
		{"contains lowercase l", strings.Repeat("a", 30) + "ll", false},
		{"contains symbol", strings.Repeat("a", 31) + "!", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateWallet(tc.address)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestTransferRejectsInvalidRequests(t *testing.T) {
	procs := []PaymentProcessor{
		&X402Processor{},
		&CashProcessor{},
		NewSolanaProcessor(),
	}
	for _, p := range procs {
		t.Run(string(p.Protocol()), func(t *testing.T) {
			_, err := p.Transfer(context.Background(), TransferRequest{
				FromWallet: fromWallet, ToWallet: toWallet, Amount: 0,
			})
			assert.ErrorIs(t, err, ErrValidation, "zero amount")

			_, err = p.Transfer(context.Background(), TransferRequest{
				FromWallet: fromWallet, ToWallet: toWallet, Amount: -50,
			})
			assert.ErrorIs(t, err, ErrValidation, "negative amount")

			_, err = p.Transfer(context.Background(), TransferRequest{
				FromWallet: "short", ToWallet: toWallet, Amount: 100,
			})
			assert.ErrorIs(t, err, ErrValidation, "bad from wallet")

			_, err = p.Transfer(context.Background(), TransferRequest{
				FromWallet: fromWallet, ToWallet: "short", Amount: 100,
			})
			assert.ErrorIs(t, err, ErrValidation, "bad to wallet")
		})
	}
}

func TestX402Transfer(t *testing.T) {
	p := &X402Processor{} // no settle delay in tests

	receipt, err := p.Transfer(context.Background(), validTransfer(500))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(receipt.TransactionHash, "x402_"))
	assert.Equal(t, models.PaymentStatusSuccess, receipt.Status)
	assert.Equal(t, 500.0, receipt.Amount)
	assert.InDelta(t, 0.000005+500*0.001, receipt.Fee, 1e-9)
	assert.True(t, p.Verify(receipt.TransactionHash))
}

func TestCashTransfer(t *testing.T) {
	p := &CashProcessor{}

	receipt, err := p.Transfer(context.Background(), TransferRequest{
		FromWallet: fromWallet,
		ToWallet:   toWallet,
		Amount:     100,
		Memo:       "bounty payout",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(receipt.TransactionHash, "cash_"))
	assert.InDelta(t, 0.000001+100*0.0005, receipt.Fee, 1e-9)
	assert.True(t, p.Verify(receipt.TransactionHash))
}

func TestCashFeeUndercutsX402(t *testing.T) {
	cash := NewCashProcessor()
	x402 := NewX402Processor()
	for _, amount := range []float64{1, 100, 5000} {
		assert.Less(t, cash.EstimateFee(amount), x402.EstimateFee(amount))
	}
}

func TestSolanaTransferVerifiesSignature(t *testing.T) {
	p := NewSolanaProcessor()
	signature := "4NduA2bQyY7rWZXeV6tGwFqUuBwnhsKmJcPjEkRvSxTz"

	_, err := p.Transfer(context.Background(), validTransfer(250))
	assert.ErrorIs(t, err, ErrTransfer, "no signature supplied")

	req := validTransfer(250)
	req.Reference = "x402_1700000000000_7xK9M2nP"
	_, err = p.Transfer(context.Background(), req)
	assert.ErrorIs(t, err, ErrTransfer, "simulated-rail receipt is not an on-chain signature")

	req.Reference = signature
	receipt, err := p.Transfer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, signature, receipt.TransactionHash, "records the supplied signature verbatim")
	assert.Equal(t, 0.000005, receipt.Fee)
}

func TestSolanaVerify(t *testing.T) {
	p := NewSolanaProcessor()
	assert.True(t, p.Verify("4NduA2bQyY7rWZXeV6tGwFqUuBwnhsKmJcPjEkRvSxTz"))
	assert.False(t, p.Verify("tooshort"))
	assert.False(t, p.Verify("x402_1700000000000_7xK9M2nP4sQ6tR8vW3aB"))
	assert.False(t, p.Verify("cash_1700000000000_7xK9M2nP4sQ6tR8vW3aB"))
}

func TestRegistryResolution(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, models.ProtocolX402, r.For(models.ProtocolX402).Protocol())
	assert.Equal(t, models.ProtocolCash, r.For(models.ProtocolCash).Protocol())
	assert.Equal(t, models.ProtocolSolana, r.For(models.ProtocolSolana).Protocol())

	// unknown and unset tags settle on the traditional rail
	assert.Equal(t, models.ProtocolSolana, r.For("LIGHTNING").Protocol())
	assert.Equal(t, models.ProtocolSolana, r.For("").Protocol())
}

func TestTransferHonoursCancellation(t *testing.T) {
	p := &X402Processor{SettleDelay: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := p.Transfer(ctx, validTransfer(10))
	assert.ErrorIs(t, err, ErrTransfer)
	assert.Less(t, time.Since(start), time.Second)
}
