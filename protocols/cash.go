// protocols/cash.go
package protocols

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Tarif-dev/Forge/models"
)

const cashReceiptPrefix = "cash_"

// CashProcessor is the consumer rail: optimized for low fees and
// sub-few-second settlement.
type CashProcessor struct {
	SettleDelay time.Duration
}

func NewCashProcessor() *CashProcessor {
	return &CashProcessor{SettleDelay: 500 * time.Millisecond}
}

func (p *CashProcessor) Protocol() models.PaymentProtocol {
	return models.ProtocolCash
}

func (p *CashProcessor) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.Memo != "" {
		log.Printf("CASH payment memo: %s", req.Memo)
	}

	if err := settleDelay(ctx, p.SettleDelay); err != nil {
		return nil, err
	}

	hash := fmt.Sprintf("%s%d_%s", cashReceiptPrefix, time.Now().UnixMilli(), req.FromWallet[:8])
	log.Printf("CASH payment settled: %s (%.4f to %s)", hash, req.Amount, req.ToWallet)

	return &Receipt{
		TransactionHash: hash,
		Status:          models.PaymentStatusSuccess,
		Amount:          req.Amount,
		Fee:             p.EstimateFee(req.Amount),
		Timestamp:       time.Now(),
	}, nil
}

// EstimateFee: tiny fixed base plus 0.05% of the amount
func (p *CashProcessor) EstimateFee(amount float64) float64 {
	return 0.000001 + amount*0.0005
}

func (p *CashProcessor) Verify(transactionHash string) bool {
	return strings.HasPrefix(transactionHash, cashReceiptPrefix)
}
