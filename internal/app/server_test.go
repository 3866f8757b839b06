package app

import (
	"testing"
	"time"

	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/config"
	"github.com/cradoe/puddle/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestWriteTimeoutCoversDeploymentWait(t *testing.T) {
	tests := []struct {
		name        string
		confirm     time.Duration
		maxAttempts int
		baseDelay   time.Duration
	}{
		{name: "defaults", confirm: chain.DefaultConfirmTimeout, maxAttempts: service.DefaultInviteMaxAttempts, baseDelay: service.DefaultInviteBaseDelay},
		{name: "unset falls back to defaults"},
		{name: "slow chain", confirm: 2 * time.Minute, maxAttempts: 3, baseDelay: time.Second},
		{name: "long invite backoff", confirm: 20 * time.Second, maxAttempts: 5, baseDelay: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config.Config
			cfg.Chain.ConfirmTimeout = tt.confirm
			cfg.Invite.MaxAttempts = tt.maxAttempts
			cfg.Invite.BaseDelay = tt.baseDelay

			confirm := tt.confirm
			if confirm <= 0 {
				confirm = chain.DefaultConfirmTimeout
			}
			worst := confirm + service.RetryPolicy{MaxAttempts: tt.maxAttempts, BaseDelay: tt.baseDelay}.WithDefaults().TotalDelay()

			got := writeTimeout(cfg)
			assert.Greater(t, got, worst)
			assert.GreaterOrEqual(t, got, defaultWriteTimeout)
		})
	}
}

func TestDefaultDeploymentWaitFitsDefaultWriteTimeout(t *testing.T) {
	worst := chain.DefaultConfirmTimeout + service.RetryPolicy{}.WithDefaults().TotalDelay()
	assert.Less(t, worst, defaultWriteTimeout)
}
