package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

// ErrInvalidScheduleRequest rejects plans over a non-positive balance or count.
var ErrInvalidScheduleRequest = errors.New("installment plan requires a positive balance and count")

// PlanInstallments splits balance into count equal parts at two-decimal
// precision, due one calendar month apart starting at start. The rounding
// remainder of a non-divisible balance lands on the last installment so
// the parts always sum to balance exactly. Every installment gets a fresh
// stable id and starts pending.
func PlanInstallments(balance decimal.Decimal, count int, start time.Time) ([]models.Installment, error) {
	if count <= 0 || !balance.IsPositive() {
		return nil, ErrInvalidScheduleRequest
	}

	per := balance.Div(decimal.NewFromInt(int64(count))).Truncate(2)
	plan := make([]models.Installment, 0, count)
	for i := 0; i < count; i++ {
		amount := per
		if i == count-1 {
			amount = balance.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		plan = append(plan, models.Installment{
			ID:       uuid.NewString(),
			Sequence: i + 1,
			DueDate:  start.AddDate(0, i+1, 0),
			Amount:   amount,
			Status:   models.InstallmentPending,
		})
	}
	return plan, nil
}
