package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAddress(t *testing.T) {
	assert.True(t, IsAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.True(t, IsAddress("0xde709f2102306220921060314715629080e2fb77"))
	assert.False(t, IsAddress("52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, IsAddress("0x52908400098527886E0F7030069857D2E4169EE"))
	assert.False(t, IsAddress("0xZZ908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, IsAddress(""))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		value string
		want  string
		err   error
	}{
		{"0.1", "0.1", nil},
		{"1.00000001", "1.00000001", nil},
		{"999999999999999999.99999999", "999999999999999999.99999999", nil},
		{"", "", ErrAmountRequired},
		{"  ", "", ErrAmountRequired},
		{"abc", "", ErrAmountInvalid},
		{"0", "", ErrAmountNotPos},
		{"-1", "", ErrAmountNotPos},
		{"0.000000001", "", ErrAmountPrecision},
		{"1000000000000000000", "", ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseAmount(tt.value)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got))
		})
	}
}

func TestCheckAmount(t *testing.T) {
	var v Validator

	v.CheckAmount("amount", "-3")
	v.CheckAmount("goal_amount", "2.5")

	require.True(t, v.HasErrors())
	require.Equal(t, []string{"amount must be greater than zero"}, v.Errors)
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("7d444840-9dc0-11d1-b245-5ffdce74fad2"))
	assert.False(t, IsUUID("not-a-uuid"))
}
