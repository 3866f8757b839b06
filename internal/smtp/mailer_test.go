package smtp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type mockMailClient struct {
	mock.Mock
}

func (m *mockMailClient) DialAndSend(msgs ...*mail.Msg) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func depositData() map[string]any {
	return map[string]any{
		"BaseURL":       "http://localhost:4444",
		"PiggyBankID":   "pb-1",
		"PiggyBankName": "holiday fund",
		"ActorAddress":  "0xde709f2102306220921060314715629080e2fb77",
		"Amount":        "0.5",
		"CurrentAmount": "1.5",
		"GoalAmount":    "10",
	}
}

func TestSendRetriesUntilDelivered(t *testing.T) {
	client := new(mockMailClient)
	client.On("DialAndSend", mock.Anything).Return(errors.New("connection refused")).Twice()
	client.On("DialAndSend", mock.Anything).Return(nil).Once()

	mailer := NewMailerWithClient(client, "no-reply@puddle.app")
	mailer.retryDelay = 0

	err := mailer.Send("alice@example.com", depositData(), "deposit-made.tmpl")
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "DialAndSend", 3)
}

func TestSendReturnsLastError(t *testing.T) {
	client := new(mockMailClient)
	client.On("DialAndSend", mock.Anything).Return(errors.New("connection refused"))

	mailer := NewMailerWithClient(client, "no-reply@puddle.app")
	mailer.retryDelay = 0

	err := mailer.Send("alice@example.com", depositData(), "deposit-made.tmpl")
	require.EqualError(t, err, "connection refused")
	client.AssertNumberOfCalls(t, "DialAndSend", sendAttempts)
}

func TestSendRejectsUnknownTemplate(t *testing.T) {
	client := new(mockMailClient)

	mailer := NewMailerWithClient(client, "no-reply@puddle.app")

	err := mailer.Send("alice@example.com", depositData(), "missing.tmpl")
	require.Error(t, err)
	client.AssertNotCalled(t, "DialAndSend", mock.Anything)
}

func TestSendDoesNotMutatePatterns(t *testing.T) {
	client := new(mockMailClient)
	client.On("DialAndSend", mock.Anything).Return(nil)

	mailer := NewMailerWithClient(client, "no-reply@puddle.app")

	patterns := []string{"deposit-made.tmpl"}
	require.NoError(t, mailer.Send("alice@example.com", depositData(), patterns...))
	require.Equal(t, "deposit-made.tmpl", patterns[0])
}
