package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/types"
)

func TestCustomerValidate(t *testing.T) {
	ctx := context.Background()

	c := NewCustomer("CUS-001", "City Clinic")
	assert.NoError(t, c.Validate(ctx))

	c.Name = ""
	assert.True(t, apperror.HasCode(c.Validate(ctx), apperror.CodeValidation))

	c = NewCustomer("CUS-002", "Care Home")
	c.CreditLimit = types.MinorUnits(-1)
	assert.True(t, apperror.HasCode(c.Validate(ctx), apperror.CodeValidation))
}

func TestCheckCredit(t *testing.T) {
	t.Run("zero limit means unlimited credit", func(t *testing.T) {
		c := NewCustomer("CUS-001", "City Clinic")
		assert.NoError(t, c.CheckCredit(1_000_000))
		assert.False(t, c.HasCreditLimit())
	})

	t.Run("within limit passes", func(t *testing.T) {
		c := NewCustomer("CUS-001", "City Clinic")
		c.CreditLimit = 50000
		c.Balance = 20000
		assert.NoError(t, c.CheckCredit(30000))
	})

	t.Run("exceeding limit fails", func(t *testing.T) {
		c := NewCustomer("CUS-001", "City Clinic")
		c.CreditLimit = 50000
		c.Balance = 20000
		err := c.CheckCredit(30001)
		assert.True(t, apperror.HasCode(err, apperror.CodeCreditLimitExceeded))
	})
}
