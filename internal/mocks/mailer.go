package mocks

import "github.com/stretchr/testify/mock"

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(recipient string, data any, patterns ...string) error {
	args := m.Called(recipient, data, patterns)
	return args.Error(0)
}

// Recipients lists the address of every Send call, in call order. Call it
// only once the senders are done.
func (m *MockMailer) Recipients() []string {
	recipients := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		if call.Method == "Send" {
			recipients = append(recipients, call.Arguments.String(0))
		}
	}

	return recipients
}
