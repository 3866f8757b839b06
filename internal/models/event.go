package models

import "time"

// EventsTopic carries every piggy bank notification event.
const EventsTopic = "piggybank.events"

const (
	EventPiggyBankCreated    = "piggy_bank.created"
	EventPartnerInvited      = "partner.invited"
	EventDepositMade         = "deposit.made"
	EventGoalMilestone       = "goal.milestone"
	EventGoalReached         = "goal.reached"
	EventWithdrawalRequested = "withdrawal.requested"
	EventWithdrawalApproved  = "withdrawal.approved"
	EventWithdrawalRejected  = "withdrawal.rejected"
)

// Event is the message published for every state change members hear about.
// ActorID is the user who caused it; the notification worker does not mail
// the actor about their own action.
type Event struct {
	Type          string    `json:"type"`
	PiggyBankID   string    `json:"piggy_bank_id"`
	PiggyBankName string    `json:"piggy_bank_name"`
	ActorID       string    `json:"actor_id"`
	ActorAddress  string    `json:"actor_address,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	CurrentAmount string    `json:"current_amount,omitempty"`
	GoalAmount    string    `json:"goal_amount,omitempty"`
	Milestone     int       `json:"milestone,omitempty"`
	WithdrawalID  string    `json:"withdrawal_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
