package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory repository.Database. A single mutex stands in
// for the row locks of the SQL implementation, and the same uniqueness,
// membership cap and single pending withdrawal rules are enforced.
type MemoryStore struct {
	mu sync.Mutex

	users        map[string]*models.User
	piggyBanks   map[string]*models.PiggyBank
	members      []models.Member
	transactions []models.Transaction
	withdrawals  map[string]*models.WithdrawalApproval
	orphans      []*models.OrphanedContract
	invites      []*models.PendingInvite

	failures map[string][]error
	tick     time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		piggyBanks:  make(map[string]*models.PiggyBank),
		withdrawals: make(map[string]*models.WithdrawalApproval),
		failures:    make(map[string][]error),
		tick:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailNext queues errors returned by the next calls of op, named like
// "PiggyBank.CreateWithCreator". Each queued error is used once.
func (s *MemoryStore) FailNext(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[op] = append(s.failures[op], errs...)
}

func (s *MemoryStore) fail(op string) error {
	queued := s.failures[op]
	if len(queued) == 0 {
		return nil
	}

	s.failures[op] = queued[1:]
	return queued[0]
}

// now returns strictly increasing timestamps so ordering is deterministic.
func (s *MemoryStore) now() time.Time {
	s.tick = s.tick.Add(time.Second)
	return s.tick
}

func (s *MemoryStore) User() repository.UserRepository { return memoryUsers{s} }

func (s *MemoryStore) PiggyBank() repository.PiggyBankRepository { return memoryPiggyBanks{s} }

func (s *MemoryStore) Member() repository.MemberRepository { return memoryMembers{s} }

func (s *MemoryStore) Transaction() repository.TransactionRepository { return memoryTransactions{s} }

func (s *MemoryStore) Withdrawal() repository.WithdrawalRepository { return memoryWithdrawals{s} }

func (s *MemoryStore) Reconciliation() repository.ReconciliationRepository {
	return memoryReconciliation{s}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// OrphanedContracts returns every orphaned contract row, resolved or not.
func (s *MemoryStore) OrphanedContracts() []models.OrphanedContract {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OrphanedContract, 0, len(s.orphans))
	for _, o := range s.orphans {
		out = append(out, *o)
	}
	return out
}

// PendingInvites returns every pending invite row, resolved or not.
func (s *MemoryStore) PendingInvites() []models.PendingInvite {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PendingInvite, 0, len(s.invites))
	for _, i := range s.invites {
		out = append(out, *i)
	}
	return out
}

// Transactions returns every transaction of a piggy bank, oldest first.
func (s *MemoryStore) Transactions(piggyBankID string) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.transactions {
		if t.PiggyBankID == piggyBankID {
			out = append(out, t)
		}
	}
	return out
}

// Withdrawals returns every withdrawal of a piggy bank, oldest first.
func (s *MemoryStore) Withdrawals(piggyBankID string) []models.WithdrawalApproval {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.WithdrawalApproval
	for _, w := range s.withdrawals {
		if w.PiggyBankID == piggyBankID {
			out = append(out, *w)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SetPiggyBankStatus forces a status, e.g. to simulate a cancelled ledger.
func (s *MemoryStore) SetPiggyBankStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pb, ok := s.piggyBanks[id]; ok {
		pb.Status = status
	}
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Insert(_ context.Context, user *models.User) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("User.Insert"); err != nil {
		return "", err
	}

	for _, u := range s.users {
		if u.IdentityKey == user.IdentityKey {
			return "", repository.ErrDuplicateUser
		}
	}

	if user.WalletAddress.Valid {
		user.WalletAddress.String = strings.ToLower(user.WalletAddress.String)
	}

	user.ID = uuid.NewString()
	user.CreatedAt = s.now()

	stored := *user
	s.users[user.ID] = &stored

	return user.ID, nil
}

func (r memoryUsers) GetOne(_ context.Context, id string) (*models.User, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("User.GetOne"); err != nil {
		return nil, false, err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, false, nil
	}

	user := *u
	return &user, true, nil
}

func (r memoryUsers) GetByIdentityKey(_ context.Context, identityKey string) (*models.User, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.IdentityKey == identityKey {
			user := *u
			return &user, true, nil
		}
	}

	return nil, false, nil
}

func (r memoryUsers) GetByWalletAddress(_ context.Context, walletAddress string) (*models.User, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("User.GetByWalletAddress"); err != nil {
		return nil, false, err
	}

	walletAddress = strings.ToLower(walletAddress)

	var best *models.User
	for _, u := range s.users {
		if !u.WalletAddress.Valid || u.WalletAddress.String != walletAddress {
			continue
		}

		switch {
		case best == nil:
			best = u
		case best.IsPlaceholder() && !u.IsPlaceholder():
			best = u
		case best.IsPlaceholder() == u.IsPlaceholder() && u.CreatedAt.Before(best.CreatedAt):
			best = u
		}
	}

	if best == nil {
		return nil, false, nil
	}

	user := *best
	return &user, true, nil
}

func (r memoryUsers) ClaimPlaceholder(_ context.Context, id, identityKey string, email sql.NullString) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !u.IsPlaceholder() {
		return nil, repository.ErrRecordNotFound
	}

	for _, other := range s.users {
		if other.IdentityKey == identityKey {
			return nil, repository.ErrDuplicateUser
		}
	}

	u.IdentityKey = identityKey
	if email.Valid {
		u.Email = email
	}

	user := *u
	return &user, nil
}

type memoryPiggyBanks struct{ s *MemoryStore }

func (r memoryPiggyBanks) CreateWithCreator(_ context.Context, pb *models.PiggyBank, creatorID string) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("PiggyBank.CreateWithCreator"); err != nil {
		return "", err
	}

	pb.ContractAddress = strings.ToLower(pb.ContractAddress)
	for _, existing := range s.piggyBanks {
		if existing.ContractAddress == pb.ContractAddress {
			return "", repository.ErrDuplicateContract
		}
	}

	if pb.Status == "" {
		pb.Status = models.PiggyBankActiveStatus
	}

	pb.ID = uuid.NewString()
	pb.CurrentAmount = decimal.Zero
	pb.CreatedAt = s.now()

	stored := *pb
	s.piggyBanks[pb.ID] = &stored

	s.members = append(s.members, models.Member{
		ID:          uuid.NewString(),
		PiggyBankID: pb.ID,
		UserID:      creatorID,
		Role:        models.MemberRoleCreator,
		JoinedAt:    s.now(),
	})

	return pb.ID, nil
}

func (r memoryPiggyBanks) GetOne(_ context.Context, id string) (*models.PiggyBank, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("PiggyBank.GetOne"); err != nil {
		return nil, false, err
	}

	p, ok := s.piggyBanks[id]
	if !ok {
		return nil, false, nil
	}

	pb := *p
	return &pb, true, nil
}

func (r memoryPiggyBanks) GetByContractAddress(_ context.Context, contractAddress string) (*models.PiggyBank, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	contractAddress = strings.ToLower(contractAddress)
	for _, p := range s.piggyBanks {
		if p.ContractAddress == contractAddress {
			pb := *p
			return &pb, true, nil
		}
	}

	return nil, false, nil
}

func (r memoryPiggyBanks) GetAllByUserID(_ context.Context, userID string) ([]models.PiggyBankMembership, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.PiggyBankMembership{}
	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		if p, ok := s.piggyBanks[m.PiggyBankID]; ok {
			out = append(out, models.PiggyBankMembership{PiggyBank: *p, Role: m.Role, JoinedAt: m.JoinedAt})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryPiggyBanks) UpdateStatus(_ context.Context, id, status string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.piggyBanks[id]
	if !ok {
		return repository.ErrRecordNotFound
	}

	p.Status = status
	return nil
}

type memoryMembers struct{ s *MemoryStore }

func (r memoryMembers) Insert(_ context.Context, piggyBankID, userID, role string) (*models.Member, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Member.Insert"); err != nil {
		return nil, err
	}

	if _, ok := s.piggyBanks[piggyBankID]; !ok {
		return nil, repository.ErrRecordNotFound
	}

	count := 0
	for _, m := range s.members {
		if m.PiggyBankID != piggyBankID {
			continue
		}
		if m.UserID == userID {
			return nil, repository.ErrDuplicateMember
		}
		count++
	}

	if count >= models.MaxMembers {
		return nil, repository.ErrMembershipFull
	}

	member := models.Member{
		ID:          uuid.NewString(),
		PiggyBankID: piggyBankID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    s.now(),
	}
	s.members = append(s.members, member)

	return &member, nil
}

func (r memoryMembers) GetAllByPiggyBankID(_ context.Context, piggyBankID string) ([]models.MemberDetail, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.MemberDetail{}
	for _, m := range s.members {
		if m.PiggyBankID != piggyBankID {
			continue
		}

		detail := models.MemberDetail{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if u, ok := s.users[m.UserID]; ok {
			detail.WalletAddress = u.WalletAddress
			detail.Email = u.Email
		}
		out = append(out, detail)
	}

	return out, nil
}

func (r memoryMembers) GetRole(_ context.Context, piggyBankID, userID string) (string, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.members {
		if m.PiggyBankID == piggyBankID && m.UserID == userID {
			return m.Role, true, nil
		}
	}

	return "", false, nil
}

func (r memoryMembers) Count(_ context.Context, piggyBankID string) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.members {
		if m.PiggyBankID == piggyBankID {
			count++
		}
	}

	return count, nil
}

type memoryTransactions struct{ s *MemoryStore }

func (s *MemoryStore) hashRecorded(hash string) bool {
	for _, t := range s.transactions {
		if t.TransactionHash == hash {
			return true
		}
	}
	return false
}

// credit mirrors creditPiggyBank: add the amount and complete an active
// piggy bank once the goal is met.
func (s *MemoryStore) credit(pb *models.PiggyBank, amount decimal.Decimal) {
	pb.CurrentAmount = pb.CurrentAmount.Add(amount)
	if pb.Status == models.PiggyBankActiveStatus && pb.CurrentAmount.GreaterThanOrEqual(pb.GoalAmount) {
		pb.Status = models.PiggyBankCompletedStatus
	}
}

func (r memoryTransactions) RecordDeposit(_ context.Context, transaction *models.Transaction) (*models.PiggyBank, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Transaction.RecordDeposit"); err != nil {
		return nil, err
	}

	pb, ok := s.piggyBanks[transaction.PiggyBankID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	if pb.Status == models.PiggyBankCancelledStatus {
		return nil, repository.ErrPiggyBankCancelled
	}
	if s.hashRecorded(transaction.TransactionHash) {
		return nil, repository.ErrDuplicateTransaction
	}

	transaction.ID = uuid.NewString()
	transaction.Type = models.TransactionTypeDeposit
	transaction.CreatedAt = s.now()
	s.transactions = append(s.transactions, *transaction)

	if transaction.Status == models.TransactionStatusCompleted {
		s.credit(pb, transaction.Amount)
	}

	updated := *pb
	return &updated, nil
}

func (r memoryTransactions) ConfirmDeposit(_ context.Context, transactionHash, status string) (*models.Transaction, *models.PiggyBank, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		t := &s.transactions[i]
		if t.TransactionHash != transactionHash {
			continue
		}

		if t.Status != models.TransactionStatusPending {
			return nil, nil, repository.ErrTransactionNotPending
		}

		pb, ok := s.piggyBanks[t.PiggyBankID]
		if !ok {
			return nil, nil, repository.ErrRecordNotFound
		}

		t.Status = status
		t.UpdatedAt = sql.NullTime{Time: s.now(), Valid: true}

		if status == models.TransactionStatusCompleted {
			s.credit(pb, t.Amount)
		}

		transaction, updated := *t, *pb
		return &transaction, &updated, nil
	}

	return nil, nil, repository.ErrRecordNotFound
}

func (r memoryTransactions) GetByHash(_ context.Context, transactionHash string) (*models.Transaction, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if t.TransactionHash == transactionHash {
			transaction := t
			return &transaction, true, nil
		}
	}

	return nil, false, nil
}

func (s *MemoryStore) details(piggyBankID string) []models.TransactionDetail {
	out := []models.TransactionDetail{}
	for _, t := range s.transactions {
		if t.PiggyBankID != piggyBankID {
			continue
		}

		detail := models.TransactionDetail{Transaction: t}
		if u, ok := s.users[t.UserID]; ok {
			detail.WalletAddress = u.WalletAddress
		}
		out = append(out, detail)
	}
	return out
}

func (r memoryTransactions) GetHistory(_ context.Context, piggyBankID string) ([]models.TransactionDetail, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.details(piggyBankID), nil
}

func (r memoryTransactions) GetPage(_ context.Context, piggyBankID string, limit, offset int) ([]models.TransactionDetail, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.details(piggyBankID)
	total := len(all)

	newest := make([]models.TransactionDetail, 0, total)
	for i := total - 1; i >= 0; i-- {
		newest = append(newest, all[i])
	}

	if offset >= total {
		return []models.TransactionDetail{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return newest[offset:end], total, nil
}

func (r memoryTransactions) GetPending(_ context.Context, limit int) ([]models.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Transaction{}
	for _, t := range s.transactions {
		if len(out) == limit {
			break
		}
		if t.Status == models.TransactionStatusPending && t.Type == models.TransactionTypeDeposit {
			out = append(out, t)
		}
	}

	return out, nil
}

type memoryWithdrawals struct{ s *MemoryStore }

func (r memoryWithdrawals) Request(_ context.Context, withdrawal *models.WithdrawalApproval) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Withdrawal.Request"); err != nil {
		return err
	}

	pb, ok := s.piggyBanks[withdrawal.PiggyBankID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	if pb.Status == models.PiggyBankCancelledStatus {
		return repository.ErrPiggyBankCancelled
	}

	for _, w := range s.withdrawals {
		if w.PiggyBankID == pb.ID && w.IsPending() {
			return repository.ErrPendingWithdrawalExists
		}
	}

	if withdrawal.WithdrawalAmount.GreaterThan(pb.CurrentAmount) {
		return repository.ErrInsufficientBalance
	}

	withdrawal.ID = uuid.NewString()
	withdrawal.CreatedAt = s.now()

	stored := *withdrawal
	s.withdrawals[withdrawal.ID] = &stored

	return nil
}

func (r memoryWithdrawals) GetOne(_ context.Context, id string) (*models.WithdrawalApproval, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return nil, false, nil
	}

	withdrawal := *w
	return &withdrawal, true, nil
}

func (r memoryWithdrawals) GetPendingByPiggyBankID(_ context.Context, piggyBankID string) (*models.WithdrawalDetail, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.withdrawals {
		if w.PiggyBankID != piggyBankID || !w.IsPending() {
			continue
		}

		detail := &models.WithdrawalDetail{WithdrawalApproval: *w}
		if u, ok := s.users[w.InitiatorID]; ok {
			detail.InitiatorWalletAddress = u.WalletAddress
		}
		return detail, true, nil
	}

	return nil, false, nil
}

func (r memoryWithdrawals) Approve(_ context.Context, id, approverID, transactionHash string) (*models.WithdrawalApproval, *models.PiggyBank, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Withdrawal.Approve"); err != nil {
		return nil, nil, err
	}

	stored, ok := s.withdrawals[id]
	if !ok {
		return nil, nil, repository.ErrRecordNotFound
	}

	pb, ok := s.piggyBanks[stored.PiggyBankID]
	if !ok {
		return nil, nil, repository.ErrRecordNotFound
	}

	if transactionHash == "" {
		transactionHash = "withdrawal:" + stored.ID
	}

	// work on a copy so a rejected approval leaves no trace
	withdrawal := *stored
	if err := withdrawal.Approve(approverID, transactionHash, s.now()); err != nil {
		return nil, nil, err
	}

	if withdrawal.WithdrawalAmount.GreaterThan(pb.CurrentAmount) {
		return nil, nil, repository.ErrInsufficientBalance
	}
	if s.hashRecorded(transactionHash) {
		return nil, nil, repository.ErrDuplicateTransaction
	}

	*stored = withdrawal
	pb.CurrentAmount = pb.CurrentAmount.Sub(withdrawal.WithdrawalAmount)

	s.transactions = append(s.transactions, models.Transaction{
		ID:              uuid.NewString(),
		PiggyBankID:     pb.ID,
		UserID:          withdrawal.InitiatorID,
		Amount:          withdrawal.WithdrawalAmount,
		TransactionHash: transactionHash,
		Type:            models.TransactionTypeWithdrawal,
		Status:          models.TransactionStatusCompleted,
		CreatedAt:       s.now(),
	})

	updated := *pb
	return &withdrawal, &updated, nil
}

func (r memoryWithdrawals) Cancel(_ context.Context, id, userID string) (*models.WithdrawalApproval, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.withdrawals[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}

	withdrawal := *stored
	if err := withdrawal.Cancel(userID, s.now()); err != nil {
		return nil, err
	}

	*stored = withdrawal
	return &withdrawal, nil
}

type memoryReconciliation struct{ s *MemoryStore }

func (r memoryReconciliation) InsertOrphanedContract(_ context.Context, orphan *models.OrphanedContract) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Reconciliation.InsertOrphanedContract"); err != nil {
		return "", err
	}

	orphan.ID = uuid.NewString()
	orphan.CreatedAt = s.now()

	stored := *orphan
	s.orphans = append(s.orphans, &stored)

	return orphan.ID, nil
}

func (r memoryReconciliation) GetUnresolvedOrphanedContracts(_ context.Context, limit int) ([]models.OrphanedContract, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.OrphanedContract{}
	for _, o := range s.orphans {
		if len(out) == limit {
			break
		}
		if !o.Resolved {
			out = append(out, *o)
		}
	}

	return out, nil
}

func (r memoryReconciliation) SetOrphanedContractAddress(_ context.Context, id, contractAddress string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orphans {
		if o.ID == id {
			o.ContractAddress = sql.NullString{String: strings.ToLower(contractAddress), Valid: true}
			return nil
		}
	}

	return nil
}

func (r memoryReconciliation) ResolveOrphanedContract(_ context.Context, id, piggyBankID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orphans {
		if o.ID != id || o.Resolved {
			continue
		}

		o.Resolved = true
		o.PiggyBankID = sql.NullString{String: piggyBankID, Valid: piggyBankID != ""}
		o.ResolvedAt = sql.NullTime{Time: s.now(), Valid: true}
		return nil
	}

	return repository.ErrOrphanedContractResolved
}

func (r memoryReconciliation) InsertPendingInvite(_ context.Context, invite *models.PendingInvite) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Reconciliation.InsertPendingInvite"); err != nil {
		return "", err
	}

	invite.ID = uuid.NewString()
	invite.PartnerAddress = strings.ToLower(invite.PartnerAddress)
	invite.CreatedAt = s.now()

	stored := *invite
	s.invites = append(s.invites, &stored)

	return invite.ID, nil
}

func (r memoryReconciliation) GetUnresolvedPendingInvites(_ context.Context, limit int) ([]models.PendingInvite, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.PendingInvite{}
	for _, i := range s.invites {
		if len(out) == limit {
			break
		}
		if !i.Resolved {
			out = append(out, *i)
		}
	}

	return out, nil
}

func (r memoryReconciliation) RecordPendingInviteAttempt(_ context.Context, id, lastError string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, i := range s.invites {
		if i.ID == id {
			i.Attempts++
			i.LastError = lastError
			i.UpdatedAt = sql.NullTime{Time: s.now(), Valid: true}
		}
	}

	return nil
}

func (r memoryReconciliation) ResolvePendingInvite(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, i := range s.invites {
		if i.ID == id {
			i.Resolved = true
			i.UpdatedAt = sql.NullTime{Time: s.now(), Valid: true}
		}
	}

	return nil
}
