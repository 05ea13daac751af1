package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/qubotech/Referral/internal/models"
	"github.com/qubotech/Referral/internal/services"
	"github.com/qubotech/Referral/internal/store"
)

func setupLedger(t *testing.T) (*services.Ledger, *store.MemoryStore) {
	t.Helper()

	memStore := store.NewMemoryStore()
	user := &models.User{
		ID:           "user-1",
		Name:         "Test User",
		Email:        "test@example.com",
		ReferralCode: "REFAAA111",
		CreatedAt:    time.Now(),
	}
	if err := memStore.Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	counter := 0
	ledger := services.NewLedger(memStore, nil,
		services.WithNameSource(func() string {
			counter++
			return fmt.Sprintf("Member %d", counter)
		}),
	)
	ledger.Initialize(context.Background(), user)
	return ledger, memStore
}

// assertSingleActive checks the ladder invariant: at most one task is
// unlocked with its games still pending.
func assertSingleActive(t *testing.T, tasks []models.ReferralTask) {
	t.Helper()

	active := 0
	for _, task := range tasks {
		if task.Unlocked && !task.GamesCompleted {
			active++
		}
	}
	if active > 1 {
		t.Errorf("Ladder has %d active tasks, want at most 1", active)
	}
}

// reconcile sums credits minus debits over the wallet-affecting
// transactions. Deposits move money into the plan, not the
// withdrawable balance, so they stay out of the sum.
func reconcile(transactions []models.Transaction) float64 {
	total := 0.0
	for _, tx := range transactions {
		if tx.Type == models.TransactionTypeDeposit {
			continue
		}
		if tx.Direction == models.DirectionCredit {
			total += tx.Amount
		} else {
			total -= tx.Amount
		}
	}
	return total
}

func TestReferralBeforeDepositIsNotAttributed(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	member, attributed := ledger.AddReferral(ctx, "Alice")
	if attributed || member != nil {
		t.Error("Referral on a locked ladder should not be attributed")
	}

	if len(ledger.TeamMembers()) != 0 {
		t.Error("Roster should stay empty")
	}
	if len(ledger.Transactions()) != 0 {
		t.Error("Transaction log should stay empty")
	}
	if ledger.User().Wallet.Withdrawable != 0 {
		t.Error("Wallet should stay untouched")
	}
}

func TestDepositUnlocksFirstTask(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	if err := ledger.ConfirmDeposit(ctx, 100); err != nil {
		t.Fatalf("Failed to confirm deposit: %v", err)
	}

	user := ledger.User()
	if !user.HasDeposited {
		t.Error("HasDeposited should be set")
	}
	if user.Wallet.Deposited != 100 {
		t.Errorf("Deposited should be 100, got %.0f", user.Wallet.Deposited)
	}
	if ledger.BonusPerReferral() != 50 {
		t.Errorf("Bonus per referral should be 50, got %.0f", ledger.BonusPerReferral())
	}

	tasks := ledger.Tasks()
	if !tasks[0].Unlocked {
		t.Error("First task should be unlocked")
	}
	assertSingleActive(t, tasks)

	transactions := ledger.Transactions()
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Type != models.TransactionTypeDeposit || transactions[0].Direction != models.DirectionDebit {
		t.Errorf("Deposit should be logged as a debit, got %+v", transactions[0])
	}
}

func TestDepositRejectsUnknownAmounts(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	for _, amount := range []float64{0, 50, 250, 9999} {
		if err := ledger.ConfirmDeposit(ctx, amount); err == nil {
			t.Errorf("Deposit of %.0f should be rejected", amount)
		}
	}

	if ledger.User().HasDeposited {
		t.Error("Rejected deposits should not mark the user as deposited")
	}
}

func TestRepeatDepositOverwritesTier(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	if err := ledger.ConfirmDeposit(ctx, 100); err != nil {
		t.Fatalf("Failed to confirm first deposit: %v", err)
	}
	if err := ledger.ConfirmDeposit(ctx, 500); err != nil {
		t.Fatalf("Failed to confirm second deposit: %v", err)
	}

	user := ledger.User()
	if user.Wallet.Deposited != 500 {
		t.Errorf("Second deposit should overwrite, got %.0f", user.Wallet.Deposited)
	}
	if ledger.BonusPerReferral() != 250 {
		t.Errorf("Bonus tier should follow the latest deposit, got %.0f", ledger.BonusPerReferral())
	}
}

func TestFullProgressionScenario(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	if err := ledger.ConfirmDeposit(ctx, 100); err != nil {
		t.Fatalf("Failed to confirm deposit: %v", err)
	}

	member, attributed := ledger.AddReferral(ctx, "Alice")
	if !attributed {
		t.Fatal("Referral should be attributed after deposit")
	}
	if member.Name != "Alice" {
		t.Errorf("Member should keep the supplied name, got %s", member.Name)
	}

	roster := ledger.TeamMembers()
	if len(roster) != 1 || roster[0].Name != "Alice" {
		t.Errorf("Roster should hold Alice, got %+v", roster)
	}

	tasks := ledger.Tasks()
	if tasks[0].Completed != 1 {
		t.Errorf("First task should count 1 referral, got %d", tasks[0].Completed)
	}
	if got := ledger.User().Wallet.Withdrawable; got != 50 {
		t.Errorf("Withdrawable should be 50, got %.0f", got)
	}

	transactions := ledger.Transactions()
	if len(transactions) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(transactions))
	}
	// Most recent first.
	if transactions[0].Type != models.TransactionTypeReferralBonus {
		t.Errorf("Newest transaction should be the referral bonus, got %s", transactions[0].Type)
	}
	if transactions[1].Type != models.TransactionTypeDeposit {
		t.Errorf("Oldest transaction should be the deposit, got %s", transactions[1].Type)
	}

	ledger.CompleteGames(ctx)

	tasks = ledger.Tasks()
	if !tasks[0].GamesCompleted {
		t.Error("First task games should be completed")
	}
	if !tasks[1].Unlocked {
		t.Error("Second task should be unlocked")
	}
	if ledger.CurrentTaskLevel() != 1 {
		t.Errorf("Current task level should be 1, got %d", ledger.CurrentTaskLevel())
	}
	assertSingleActive(t, tasks)
}

func TestCompleteGameGatedOnReferralTarget(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	if err := ledger.CompleteGame(ctx, 0); err != services.ErrNoActiveTask {
		t.Errorf("Games before deposit should report no active task, got %v", err)
	}

	if err := ledger.ConfirmDeposit(ctx, 100); err != nil {
		t.Fatalf("Failed to confirm deposit: %v", err)
	}

	if err := ledger.CompleteGame(ctx, 0); err != services.ErrGamesLocked {
		t.Errorf("Games before the referral target should be locked, got %v", err)
	}
	if err := ledger.CompleteGame(ctx, 5); err != services.ErrGameOutOfRange {
		t.Errorf("Unknown game index should be rejected, got %v", err)
	}

	ledger.AddReferral(ctx, "")

	for i := 0; i < models.GamesPerTask; i++ {
		if err := ledger.CompleteGame(ctx, i); err != nil {
			t.Fatalf("Failed to complete game %d: %v", i, err)
		}
	}

	if ledger.CurrentTaskLevel() != 1 {
		t.Errorf("Clearing all three games should advance the ladder, got level %d", ledger.CurrentTaskLevel())
	}
	assertSingleActive(t, ledger.Tasks())
}

func TestWithdrawValidation(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()
	bank := models.BankDetails{Account: "1234567890"}

	if err := ledger.ConfirmDeposit(ctx, 100); err != nil {
		t.Fatalf("Failed to confirm deposit: %v", err)
	}
	ledger.AddReferral(ctx, "Alice") // withdrawable = 50

	result := ledger.Withdraw(ctx, 40, bank)
	if result.Success || result.Error != "Minimum withdrawal is ₹100" {
		t.Errorf("40 should fail the minimum check, got %+v", result)
	}

	result = ledger.Withdraw(ctx, 100, bank)
	if result.Success || result.Error != "Insufficient balance" {
		t.Errorf("100 on a balance of 50 should fail, got %+v", result)
	}

	if got := ledger.User().Wallet.Withdrawable; got != 50 {
		t.Errorf("Failed withdrawals should not touch the wallet, got %.0f", got)
	}
}

func TestWithdrawDebitsExactly(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	if err := ledger.ConfirmDeposit(ctx, 500); err != nil {
		t.Fatalf("Failed to confirm deposit: %v", err)
	}
	ledger.AddReferral(ctx, "Alice") // withdrawable = 250

	before := len(ledger.Transactions())
	result := ledger.Withdraw(ctx, 150, models.BankDetails{Account: "1234567890"})
	if !result.Success {
		t.Fatalf("Withdrawal should succeed, got %+v", result)
	}

	if got := ledger.User().Wallet.Withdrawable; got != 100 {
		t.Errorf("Withdrawable should drop to 100, got %.0f", got)
	}

	transactions := ledger.Transactions()
	if len(transactions) != before+1 {
		t.Fatalf("Exactly one transaction should be appended, got %d new", len(transactions)-before)
	}
	tx := transactions[0]
	if tx.Type != models.TransactionTypeWithdrawal || tx.Direction != models.DirectionDebit || tx.Amount != 150 {
		t.Errorf("Unexpected withdrawal transaction: %+v", tx)
	}
	if tx.Description != "To account 7890" {
		t.Errorf("Description should reference the last 4 digits, got %q", tx.Description)
	}
}

func TestLedgerReconciles(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	check := func(step string) {
		t.Helper()
		want := ledger.User().Wallet.Withdrawable
		if got := reconcile(ledger.Transactions()); got != want {
			t.Errorf("After %s: transactions sum to %.0f, wallet says %.0f", step, got, want)
		}
	}

	check("init")
	ledger.ConfirmDeposit(ctx, 500)
	check("deposit")
	for i := 0; i < 3; i++ {
		ledger.AddReferral(ctx, "")
		check("referral")
	}
	ledger.Withdraw(ctx, 300, models.BankDetails{Account: "9999888877776666"})
	check("withdraw")
}

func TestLadderIsTerminalAtLastRung(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	ledger.ConfirmDeposit(ctx, 100)

	// Walk the ladder to the final rung.
	for level := 0; level < 4; level++ {
		task := ledger.Tasks()[ledger.CurrentTaskLevel()]
		for task.Completed < task.Required {
			if _, ok := ledger.AddReferral(ctx, ""); !ok {
				t.Fatalf("Referral at level %d should be attributed", level)
			}
			task = ledger.Tasks()[ledger.CurrentTaskLevel()]
		}
		ledger.CompleteGames(ctx)
		assertSingleActive(t, ledger.Tasks())
	}

	if ledger.CurrentTaskLevel() != 4 {
		t.Fatalf("Should be at the final rung, got %d", ledger.CurrentTaskLevel())
	}

	// Referrals keep paying out on the unlimited rung.
	if _, ok := ledger.AddReferral(ctx, ""); !ok {
		t.Error("The final rung should keep attributing referrals")
	}

	ledger.CompleteGames(ctx)
	if ledger.CurrentTaskLevel() != 4 {
		t.Error("Completing games at the final rung must not advance")
	}
	if !ledger.Tasks()[4].GamesCompleted {
		t.Error("The final rung should still mark its games completed")
	}
}

func TestProfileMerge(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	bio := "Building my team"
	city := "Mumbai"
	profile := ledger.UpdateProfile(ctx, models.ProfileUpdate{Bio: &bio, City: &city})
	if profile.Bio != bio || profile.City != city {
		t.Errorf("Profile fields should merge, got %+v", profile)
	}

	avatar := "avatar-3"
	profile = ledger.UpdateProfile(ctx, models.ProfileUpdate{Avatar: &avatar})
	if profile.Bio != bio {
		t.Error("Untouched fields should keep their value")
	}
	if profile.Avatar != avatar {
		t.Errorf("Avatar should update, got %q", profile.Avatar)
	}
}

func TestSnapshotRestoredOnReinitialize(t *testing.T) {
	ledger, memStore := setupLedger(t)
	ctx := context.Background()

	ledger.ConfirmDeposit(ctx, 500)
	ledger.AddReferral(ctx, "Alice")
	ledger.CompleteGames(ctx)

	user, err := memStore.FindByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}

	restored := services.NewLedger(memStore, nil)
	restored.Initialize(ctx, user)

	if restored.CurrentTaskLevel() != 1 {
		t.Errorf("Restored ledger should resume at level 1, got %d", restored.CurrentTaskLevel())
	}
	if len(restored.TeamMembers()) != 1 {
		t.Errorf("Roster should survive a reload, got %d members", len(restored.TeamMembers()))
	}
	if len(restored.Transactions()) != 2 {
		t.Errorf("Transaction log should survive a reload, got %d", len(restored.Transactions()))
	}
	if restored.BonusPerReferral() != 250 {
		t.Errorf("Bonus tier should survive a reload, got %.0f", restored.BonusPerReferral())
	}
}

// userOnlyStore hides the snapshot capability, mimicking a backend
// that can write user records but not ledger state.
type userOnlyStore struct {
	store.UserStore
}

func TestLadderRebuiltFromTaskLevelWithoutSnapshots(t *testing.T) {
	ledger, memStore := setupLedger(t)
	ctx := context.Background()

	ledger.ConfirmDeposit(ctx, 100)
	ledger.AddReferral(ctx, "Alice")
	ledger.CompleteGames(ctx) // advances to level 1, persisted on the user

	user, err := memStore.FindByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}

	rebuilt := services.NewLedger(&userOnlyStore{UserStore: memStore}, nil)
	rebuilt.Initialize(ctx, user)

	if rebuilt.CurrentTaskLevel() != 1 {
		t.Errorf("Ladder should rebuild to level 1 from the user record, got %d", rebuilt.CurrentTaskLevel())
	}

	tasks := rebuilt.Tasks()
	if !tasks[0].GamesCompleted {
		t.Error("Rungs below the current level should be marked done")
	}
	if !tasks[1].Unlocked {
		t.Error("The current rung should be unlocked for a deposited user")
	}
	if rebuilt.BonusPerReferral() != 50 {
		t.Errorf("Bonus tier should rebuild from the deposit amount, got %.0f", rebuilt.BonusPerReferral())
	}
	assertSingleActive(t, tasks)

	// Roster and log are gone without snapshot support; that matches
	// the read-only deployments.
	if len(rebuilt.TeamMembers()) != 0 || len(rebuilt.Transactions()) != 0 {
		t.Error("Session-scoped state should reset without snapshot support")
	}
}

func TestSimulatedReferralNamesComeFromSource(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	ledger.ConfirmDeposit(ctx, 100)

	member, ok := ledger.AddReferral(ctx, "")
	if !ok {
		t.Fatal("Referral should be attributed")
	}
	if member.Name != "Member 1" {
		t.Errorf("Name should come from the injected source, got %q", member.Name)
	}
}
