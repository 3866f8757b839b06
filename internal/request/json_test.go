package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositBody struct {
	ContractAddress string `json:"contract_address"`
	Amount          string `json:"amount"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		strict  bool
		wantErr string
	}{
		{name: "valid", body: `{"contract_address":"0xabc","amount":"1.5"}`},
		{name: "unknown field allowed", body: `{"amount":"1","extra":true}`},
		{name: "unknown field strict", body: `{"amount":"1","extra":true}`, strict: true, wantErr: `body contains unknown key "extra"`},
		{name: "empty", body: ``, wantErr: "body must not be empty"},
		{name: "badly formed", body: `{"amount":`, wantErr: "body contains badly-formed JSON"},
		{name: "syntax", body: `{"amount" "1"}`, wantErr: "body contains badly-formed JSON (at character"},
		{name: "wrong type", body: `{"amount":1}`, wantErr: `body contains incorrect JSON type for field "amount"`},
		{name: "two values", body: `{"amount":"1"}{"amount":"2"}`, wantErr: "body must only contain a single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var dst depositBody
			var err error
			if tt.strict {
				err = DecodeJSONStrict(w, r, &dst)
			} else {
				err = DecodeJSON(w, r, &dst)
			}

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeJSONTooLarge(t *testing.T) {
	body := `{"amount":"` + strings.Repeat("1", maxBodyBytes) + `"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var dst depositBody
	err := DecodeJSON(httptest.NewRecorder(), r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body must not be larger than")
}

func TestDecodeOptionalJSON(t *testing.T) {
	var dst struct {
		TransactionHash string `json:"transaction_hash"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	require.NoError(t, DecodeOptionalJSON(httptest.NewRecorder(), r, &dst))
	assert.Empty(t, dst.TransactionHash)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"transaction_hash":"0x1"}`))
	require.NoError(t, DecodeOptionalJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "0x1", dst.TransactionHash)
}

func TestAmountAcceptsStringOrNumber(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: `{"amount":"16.74567892"}`, want: "16.74567892"},
		{body: `{"amount":16.74567892}`, want: "16.74567892"},
		{body: `{"amount":100}`, want: "100"},
		{body: `{"amount":null}`, want: ""},
		{body: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var dst struct {
				Amount Amount `json:"amount"`
			}
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &dst))
			assert.Equal(t, tt.want, dst.Amount.String())
		})
	}

	var dst struct {
		Amount Amount `json:"amount"`
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":true}`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), r, &dst))
}
