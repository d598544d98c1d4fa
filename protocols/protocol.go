// protocols/protocol.go
package protocols

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tarif-dev/Forge/models"
)

var (
	// ErrValidation marks a bad request (addresses, amount). The settlement
	// attempt is dead; nothing was transferred.
	ErrValidation = errors.New("payment validation failed")
	// ErrTransfer marks a rail-side failure (network, confirmation). The
	// attempt may be retried idempotently by the settlement service.
	ErrTransfer = errors.New("payment transfer failed")
)

// TransferRequest moves Amount from FromWallet to ToWallet over a rail.
// Reference carries an externally confirmed transaction signature and is
// only consulted by the traditional rail.
type TransferRequest struct {
	FromWallet string  `json:"from_wallet"`
	ToWallet   string  `json:"to_wallet"`
	Amount     float64 `json:"amount"`
	Memo       string  `json:"memo,omitempty"`
	Reference  string  `json:"reference,omitempty"`
}

// Receipt is the uniform result of a transfer across all rails
type Receipt struct {
	TransactionHash string               `json:"transaction_hash"`
	Status          models.PaymentStatus `json:"status"`
	Amount          float64              `json:"amount"`
	Fee             float64              `json:"fee"`
	Timestamp       time.Time            `json:"timestamp"`
}

// PaymentProcessor is the uniform contract every rail implements.
// Adding a rail means registering a new implementation; the settlement
// service never switches on protocol names itself.
type PaymentProcessor interface {
	Protocol() models.PaymentProtocol
	Transfer(ctx context.Context, req TransferRequest) (*Receipt, error)
	EstimateFee(amount float64) float64
	Verify(transactionHash string) bool
}

// Registry maps a bounty's payment protocol to its processor
type Registry struct {
	processors map[models.PaymentProtocol]PaymentProcessor
	fallback   models.PaymentProtocol
}

func NewRegistry(procs ...PaymentProcessor) *Registry {
	r := &Registry{
		processors: make(map[models.PaymentProtocol]PaymentProcessor),
		fallback:   models.ProtocolSolana,
	}
	for _, p := range procs {
		r.Register(p)
	}
	return r
}

// DefaultRegistry wires the three production rails
func DefaultRegistry() *Registry {
	return NewRegistry(NewX402Processor(), NewCashProcessor(), NewSolanaProcessor())
}

func (r *Registry) Register(p PaymentProcessor) {
	r.processors[p.Protocol()] = p
}

// For resolves a protocol tag to its processor. Unknown or unset tags fall
// back to the traditional rail.
func (r *Registry) For(protocol models.PaymentProtocol) PaymentProcessor {
	if p, ok := r.processors[protocol]; ok {
		return p
	}
	return r.processors[r.fallback]
}

// validateRequest applies the checks shared by every rail
func validateRequest(req TransferRequest) error {
	if err := validateWallet(req.FromWallet); err != nil {
		return fmt.Errorf("from wallet: %w", err)
	}
	if err := validateWallet(req.ToWallet); err != nil {
		return fmt.Errorf("to wallet: %w", err)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("amount must be greater than 0: %w", ErrValidation)
	}
	return nil
}

// validateWallet checks base58-style address shape. Full on-chain validation
// belongs to the rail itself.
func validateWallet(address string) error {
	if len(address) < 32 || len(address) > 44 {
		return fmt.Errorf("address %q has invalid length: %w", address, ErrValidation)
	}
	for _, c := range address {
		switch {
		case c >= '1' && c <= '9', c >= 'A' && c <= 'H', c >= 'J' && c <= 'N',
			c >= 'P' && c <= 'Z', c >= 'a' && c <= 'k', c >= 'm' && c <= 'z':
		default:
			return fmt.Errorf("address contains non-base58 character %q: %w", c, ErrValidation)
		}
	}
	return nil
}

// settleDelay sleeps for the rail's simulated settlement latency, bailing
// out early if the caller gives up.
func settleDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("settlement interrupted: %w", ErrTransfer)
	case <-timer.C:
		return nil
	}
}
