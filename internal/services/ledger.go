package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/qubotech/Referral/internal/models"
	"github.com/qubotech/Referral/internal/store"
)

var timeNow = time.Now

var (
	ErrInvalidDepositPlan = errors.New("deposit amount does not match any plan")
	ErrNoActiveTask       = errors.New("no unlocked task to play games on")
	ErrGamesLocked        = errors.New("referral target not reached yet")
	ErrGameOutOfRange     = errors.New("unknown game index")
	ErrNotInitialized     = errors.New("ledger has no user")
)

// NameSource supplies names for simulated referral traffic. Production
// referral events carry a real name instead.
type NameSource func() string

func defaultNameSource() string {
	return models.DefaultNamePool[rand.Intn(len(models.DefaultNamePool))]
}

// Ledger owns one user's wallet, referral-task ladder, team roster and
// transaction log. It is built on login, mutated synchronously by the
// handlers, and persists the user record plus a ledger snapshot on
// every mutation when the backend can write.
type Ledger struct {
	mu sync.Mutex

	store       store.UserStore
	broadcaster Broadcaster
	nameSource  NameSource
	now         func() time.Time

	user             models.User
	tasks            []models.ReferralTask
	currentTaskLevel int
	teamMembers      []models.TeamMember
	transactions     []models.Transaction
	bonusPerReferral float64
	initialized      bool
}

type LedgerOption func(*Ledger)

func WithNameSource(source NameSource) LedgerOption {
	return func(l *Ledger) { l.nameSource = source }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(userStore store.UserStore, broadcaster Broadcaster, opts ...LedgerOption) *Ledger {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	l := &Ledger{
		store:       userStore,
		broadcaster: broadcaster,
		nameSource:  defaultNameSource,
		now:         timeNow,
		tasks:       models.DefaultReferralTasks(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize resets the ledger to the seed ladder and adopts the given
// user. A persisted snapshot is restored when the backend has one;
// otherwise the ladder position is rebuilt from the user's task level
// so progression survives a reload even without snapshot support.
func (l *Ledger) Initialize(ctx context.Context, user *models.User) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.user = *user
	l.tasks = models.DefaultReferralTasks()
	l.currentTaskLevel = 0
	l.teamMembers = nil
	l.transactions = nil
	l.bonusPerReferral = 0
	l.initialized = true

	if ls, ok := l.store.(store.LedgerStore); ok {
		if snap, err := ls.LoadLedger(ctx, user.ID); err == nil {
			l.tasks = snap.Tasks
			l.currentTaskLevel = snap.CurrentTaskLevel
			l.teamMembers = snap.TeamMembers
			l.transactions = snap.Transactions
			l.bonusPerReferral = snap.BonusPerReferral
			return
		}
	}

	l.rebuildFromUser()
}

// rebuildFromUser reconstructs the ladder from the persisted task
// level: every rung below it is done, the current rung is unlocked if
// a deposit was confirmed.
func (l *Ledger) rebuildFromUser() {
	level := l.user.TaskLevel
	if level < 0 {
		level = 0
	}
	if level >= len(l.tasks) {
		level = len(l.tasks) - 1
	}
	l.currentTaskLevel = level

	for i := 0; i < level; i++ {
		l.tasks[i].Unlocked = true
		l.tasks[i].GamesCompleted = true
		l.tasks[i].Completed = l.tasks[i].Required
		for g := range l.tasks[i].GamesProgress {
			l.tasks[i].GamesProgress[g] = true
		}
	}

	if l.user.HasDeposited {
		l.tasks[level].Unlocked = true
		if bonus, err := models.BonusForDeposit(l.user.Wallet.Deposited); err == nil {
			l.bonusPerReferral = bonus
		}
	}
}

// ConfirmDeposit records the deposit, fixes the per-referral bonus
// from the plan table and unlocks the first rung. A repeat confirm
// overwrites the amount and tier without accumulating.
func (l *Ledger) ConfirmDeposit(ctx context.Context, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return ErrNotInitialized
	}

	bonus, err := models.BonusForDeposit(amount)
	if err != nil {
		return ErrInvalidDepositPlan
	}

	l.user.HasDeposited = true
	l.user.Wallet.Deposited = amount
	l.bonusPerReferral = bonus
	l.tasks[0].Unlocked = true

	tx := l.appendTransaction(models.TransactionTypeDeposit, amount, models.DirectionDebit, "Initial deposit")

	l.persist(ctx)
	l.broadcaster.DepositConfirmed(l.user.ID, amount, bonus)
	l.broadcaster.TransactionAdded(l.user.ID, tx)
	return nil
}

// AddReferral attributes a referred user joining under this account.
// With no unlocked active task nothing is mutated and no attribution
// is reported.
func (l *Ledger) AddReferral(ctx context.Context, name string) (*models.TeamMember, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil, false
	}

	task := l.activeTask()
	if task == nil || !task.Unlocked {
		return nil, false
	}

	if name == "" {
		name = l.nameSource()
	}

	member := models.TeamMember{
		ID:       models.GenerateMemberID(),
		Name:     name,
		JoinDate: l.now(),
		Status:   models.MemberStatusActive,
	}
	l.teamMembers = append(l.teamMembers, member)
	task.Completed++

	l.user.Wallet.Total += l.bonusPerReferral
	l.user.Wallet.Withdrawable += l.bonusPerReferral

	tx := l.appendTransaction(models.TransactionTypeReferralBonus, l.bonusPerReferral,
		models.DirectionCredit, fmt.Sprintf("From %s", name))

	l.persist(ctx)
	l.broadcaster.MemberJoined(l.user.ID, member)
	l.broadcaster.TransactionAdded(l.user.ID, tx)
	return &member, true
}

// CompleteGame marks one of the rung's mini-games as cleared. Games
// only open once the rung's referral target is reached; clearing the
// last of the three advances the ladder.
func (l *Ledger) CompleteGame(ctx context.Context, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return ErrNotInitialized
	}
	if index < 0 || index >= models.GamesPerTask {
		return ErrGameOutOfRange
	}

	task := l.activeTask()
	if task == nil || !task.Unlocked {
		return ErrNoActiveTask
	}
	if !task.RequirementMet() {
		return ErrGamesLocked
	}
	if task.GamesProgress[index] {
		return nil // already cleared, nothing to do
	}

	task.GamesProgress[index] = true
	for _, done := range task.GamesProgress {
		if !done {
			l.persist(ctx)
			return nil
		}
	}

	l.completeGamesLocked(ctx)
	return nil
}

// CompleteGames marks the active rung's games as done and unlocks the
// next rung. At the last rung it only marks completion; the ladder is
// terminal there.
func (l *Ledger) CompleteGames(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return
	}
	l.completeGamesLocked(ctx)
}

func (l *Ledger) completeGamesLocked(ctx context.Context) {
	task := l.activeTask()
	if task == nil {
		return
	}

	task.GamesCompleted = true

	if l.currentTaskLevel < len(l.tasks)-1 {
		l.currentTaskLevel++
		l.tasks[l.currentTaskLevel].Unlocked = true
		l.user.TaskLevel = l.currentTaskLevel
		l.broadcaster.TaskUnlocked(l.user.ID, l.tasks[l.currentTaskLevel].Level)
	}

	l.persist(ctx)
}

// Withdraw validates and records a withdrawal request. Failures come
// back as a structured result, not an error, so the caller can render
// them inline. The actual payout happens off-system.
func (l *Ledger) Withdraw(ctx context.Context, amount float64, bank models.BankDetails) models.WithdrawResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return models.WithdrawResult{Error: "no active session"}
	}

	if amount > l.user.Wallet.Withdrawable {
		return models.WithdrawResult{Error: "Insufficient balance"}
	}
	if amount < models.MinWithdrawal {
		return models.WithdrawResult{Error: "Minimum withdrawal is ₹100"}
	}

	l.user.Wallet.Total -= amount
	l.user.Wallet.Withdrawable -= amount

	tx := l.appendTransaction(models.TransactionTypeWithdrawal, amount, models.DirectionDebit,
		fmt.Sprintf("To account %s", lastFour(bank.Account)))

	l.persist(ctx)
	l.broadcaster.TransactionAdded(l.user.ID, tx)
	return models.WithdrawResult{Success: true}
}

// UpdateProfile merges the supplied fields into the profile. Nil
// fields are left untouched.
func (l *Ledger) UpdateProfile(ctx context.Context, update models.ProfileUpdate) models.Profile {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return l.user.Profile
	}

	if update.Bio != nil {
		l.user.Profile.Bio = *update.Bio
	}
	if update.City != nil {
		l.user.Profile.City = *update.City
	}
	if update.Avatar != nil {
		l.user.Profile.Avatar = *update.Avatar
	}

	l.persist(ctx)
	return l.user.Profile
}

func (l *Ledger) activeTask() *models.ReferralTask {
	if l.currentTaskLevel < 0 || l.currentTaskLevel >= len(l.tasks) {
		return nil
	}
	return &l.tasks[l.currentTaskLevel]
}

// appendTransaction prepends so the log reads most-recent-first.
func (l *Ledger) appendTransaction(txType models.TransactionType, amount float64,
	direction models.TransactionDirection, description string) models.Transaction {

	tx := models.Transaction{
		ID:          models.GenerateTransactionID(),
		Type:        txType,
		Amount:      amount,
		Direction:   direction,
		Description: description,
		Date:        l.now(),
	}
	l.transactions = append([]models.Transaction{tx}, l.transactions...)
	return tx
}

// persist writes the user record and the ledger snapshot. A read-only
// backend is not an error; state simply stays session-scoped, which is
// exactly how the sheet-backed deployments behave.
func (l *Ledger) persist(ctx context.Context) {
	if err := l.store.Update(ctx, &l.user); err != nil && !errors.Is(err, store.ErrReadOnly) {
		log.Printf("ledger: failed to persist user %s: %v", l.user.ID, err)
	}

	ls, ok := l.store.(store.LedgerStore)
	if !ok {
		return
	}
	snap := l.snapshotLocked()
	if err := ls.SaveLedger(ctx, l.user.ID, snap); err != nil && !errors.Is(err, store.ErrReadOnly) {
		log.Printf("ledger: failed to persist snapshot for %s: %v", l.user.ID, err)
	}
}

func (l *Ledger) snapshotLocked() *models.LedgerSnapshot {
	return &models.LedgerSnapshot{
		Tasks:            append([]models.ReferralTask(nil), l.tasks...),
		CurrentTaskLevel: l.currentTaskLevel,
		TeamMembers:      append([]models.TeamMember(nil), l.teamMembers...),
		Transactions:     append([]models.Transaction(nil), l.transactions...),
		BonusPerReferral: l.bonusPerReferral,
	}
}

func (l *Ledger) User() models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user.Sanitize()
}

func (l *Ledger) Tasks() []models.ReferralTask {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ReferralTask(nil), l.tasks...)
}

func (l *Ledger) CurrentTaskLevel() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTaskLevel
}

func (l *Ledger) TeamMembers() []models.TeamMember {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.TeamMember(nil), l.teamMembers...)
}

func (l *Ledger) Transactions() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Transaction(nil), l.transactions...)
}

func (l *Ledger) BonusPerReferral() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bonusPerReferral
}

// Snapshot returns the whole session state for the dashboard payload.
func (l *Ledger) Snapshot() *models.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func lastFour(account string) string {
	if len(account) <= 4 {
		return account
	}
	return account[len(account)-4:]
}
