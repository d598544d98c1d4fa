// protocols/solana.go
package protocols

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Tarif-dev/Forge/models"
)

// SolanaProcessor is the traditional rail. Transfers on this path are
// initiated by a human wallet outside the service, so Transfer is a
// verify-and-record step over an already-confirmed transaction signature
// rather than an autonomous transfer.
type SolanaProcessor struct{}

func NewSolanaProcessor() *SolanaProcessor {
	return &SolanaProcessor{}
}

func (p *SolanaProcessor) Protocol() models.PaymentProtocol {
	return models.ProtocolSolana
}

func (p *SolanaProcessor) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.Reference == "" {
		return nil, fmt.Errorf("traditional rail requires a confirmed transaction signature: %w", ErrTransfer)
	}
	if !p.Verify(req.Reference) {
		return nil, fmt.Errorf("transaction %q is not confirmed on-chain: %w", req.Reference, ErrTransfer)
	}

	return &Receipt{
		TransactionHash: req.Reference,
		Status:          models.PaymentStatusSuccess,
		Amount:          req.Amount,
		Fee:             p.EstimateFee(req.Amount),
		Timestamp:       time.Now(),
	}, nil
}

// EstimateFee: flat network fee, no percentage cut
func (p *SolanaProcessor) EstimateFee(amount float64) float64 {
	return 0.000005
}

// Verify checks signature shape. A production deployment resolves the
// signature status against an RPC node behind this same method.
func (p *SolanaProcessor) Verify(transactionHash string) bool {
	if len(transactionHash) < 32 {
		return false
	}
	// receipts minted by the simulated rails are not on-chain signatures
	if strings.HasPrefix(transactionHash, x402ReceiptPrefix) || strings.HasPrefix(transactionHash, cashReceiptPrefix) {
		return false
	}
	return true
}
