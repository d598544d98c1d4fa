// protocols/x402.go
package protocols

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Tarif-dev/Forge/models"
)

const x402ReceiptPrefix = "x402_"

// X402Processor is the autonomous agent rail: unattended transfers with no
// human in the loop, triggered directly by evaluation outcomes.
type X402Processor struct {
	// SettleDelay simulates rail latency; swap the Transfer body for real
	// protocol calls without touching callers.
	SettleDelay time.Duration
}

func NewX402Processor() *X402Processor {
	return &X402Processor{SettleDelay: time.Second}
}

func (p *X402Processor) Protocol() models.PaymentProtocol {
	return models.ProtocolX402
}

func (p *X402Processor) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := settleDelay(ctx, p.SettleDelay); err != nil {
		return nil, err
	}

	hash := fmt.Sprintf("%s%d_%s", x402ReceiptPrefix, time.Now().UnixMilli(), req.FromWallet[:8])
	log.Printf("x402 autonomous payment settled: %s (%.4f to %s)", hash, req.Amount, req.ToWallet)

	return &Receipt{
		TransactionHash: hash,
		Status:          models.PaymentStatusSuccess,
		Amount:          req.Amount,
		Fee:             p.EstimateFee(req.Amount),
		Timestamp:       time.Now(),
	}, nil
}

// EstimateFee: small fixed base plus 0.1% of the amount
func (p *X402Processor) EstimateFee(amount float64) float64 {
	return 0.000005 + amount*0.001
}

func (p *X402Processor) Verify(transactionHash string) bool {
	return strings.HasPrefix(transactionHash, x402ReceiptPrefix)
}
