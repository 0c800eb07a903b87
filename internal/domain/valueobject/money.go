package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-backoffice/internal/pkg/apperror"
)

const DefaultCurrency = "NGN"

// Money сумма в основной единице валюты (например, в найрах).
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// MinorUnits переводит сумму в минимальные единицы (копейки, кобо) для платёжного провайдера.
func (m Money) MinorUnits() int64 {
	return m.Amount.Shift(2).Round(0).IntPart()
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
}

// RequirePositive проверяет, что сумма строго больше нуля.
func RequirePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.Newf(apperror.ErrCodeValidation, "%s должна быть больше нуля", field)
	}
	return nil
}
