package checkout

import (
	"fmt"
	"time"

	"storefront/internal/domain"
)

// Snapshot сериализуемое состояние мастера для хранения между запросами
type Snapshot struct {
	Step     Step                   `json:"step"`
	Address  domain.ShippingAddress `json:"address"`
	Payment  domain.PaymentDetails  `json:"payment"`
	OrderID  string                 `json:"orderId,omitempty"`
	UserID   string                 `json:"userId,omitempty"`
	Deadline time.Time              `json:"deadline,omitempty"`
}

// Snapshot снимок текущего состояния
func (w *Wizard) Snapshot() Snapshot {
	return SnapshotOf(w.State())
}

// SnapshotOf снимок произвольного состояния
func SnapshotOf(st State) Snapshot {
	switch s := st.(type) {
	case Shipping:
		return Snapshot{Step: StepShipping, Address: s.Address}
	case Payment:
		return Snapshot{Step: StepPayment, Address: s.Address}
	case Verification:
		return Snapshot{Step: StepVerification, Address: s.Address, Payment: s.Payment, OrderID: s.OrderID, UserID: s.UserID, Deadline: s.Deadline}
	case Completed:
		return Snapshot{Step: StepCompleted, OrderID: s.OrderID}
	}
	return Snapshot{Step: StepShipping}
}

func (s Snapshot) state() (State, error) {
	switch s.Step {
	case StepShipping:
		return Shipping{Address: s.Address}, nil
	case StepPayment:
		return Payment{Address: s.Address}, nil
	case StepVerification:
		if s.OrderID == "" || s.UserID == "" || s.Deadline.IsZero() {
			return nil, fmt.Errorf("%w: verification without order", ErrCorruptSnapshot)
		}
		return Verification{Address: s.Address, Payment: s.Payment, OrderID: s.OrderID, UserID: s.UserID, Deadline: s.Deadline}, nil
	case StepCompleted:
		if s.OrderID == "" {
			return nil, fmt.Errorf("%w: completed without order", ErrCorruptSnapshot)
		}
		return Completed{OrderID: s.OrderID}, nil
	}
	return nil, fmt.Errorf("%w: step %d", ErrCorruptSnapshot, s.Step)
}
