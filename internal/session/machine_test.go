package session

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/ledger"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

type editCall struct {
	tx     core.Transaction
	amount *int64
	note   *string
}

// fakeLedger records every mutating call so tests can assert on side effects
// (and on their absence).
type fakeLedger struct {
	edits   []editCall
	deletes []core.Transaction
	resets  int
	err     error
}

func (f *fakeLedger) Edit(_ context.Context, _ *core.User, tx core.Transaction, amount *int64, note *string) error {
	if f.err != nil {
		return f.err
	}
	f.edits = append(f.edits, editCall{tx: tx, amount: amount, note: note})
	return nil
}

func (f *fakeLedger) Delete(_ context.Context, user *core.User, tx core.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, tx)
	user.Balance -= tx.Signed()
	return nil
}

func (f *fakeLedger) Reset(_ context.Context, user *core.User) error {
	if f.err != nil {
		return f.err
	}
	f.resets++
	user.Balance = 0
	return nil
}

func (f *fakeLedger) mutations() int {
	return len(f.edits) + len(f.deletes) + f.resets
}

const testJID = "628123456789@s.whatsapp.net"

func newTestMachine(engine Ledger) (*Machine, *Manager) {
	sessions := NewManager()
	logger := log.New(log.Config{Level: slog.LevelError, Component: log.ComponentSession})
	return NewMachine(sessions, engine, audit.Discard, logger), sessions
}

func testUser() *core.User {
	return &core.User{ID: 1, ChatJID: testJID, Balance: 50000}
}

func TestCancelFromAnyStepHasNoSideEffects(t *testing.T) {
	steps := []*Session{
		{Step: StepEditChoice, Target: core.Transaction{ID: 9}},
		{Step: StepNewAmount, Choice: "1", Target: core.Transaction{ID: 9}},
		{Step: StepNewNote, Choice: "2", Target: core.Transaction{ID: 9}},
		{Step: StepDeleteChoice, Candidates: []core.Transaction{{ID: 9}}},
		{Step: StepResetConfirm},
		{Step: StepFinalResetConfirm},
	}
	for _, inputCase := range []string{"batal", "BATAL", "Batal"} {
		for i, sess := range steps {
			engine := &fakeLedger{}
			machine, sessions := newTestMachine(engine)
			user := testUser()
			copied := *sess
			sessions.Begin(testJID, &copied)

			reply := machine.Handle(context.Background(), user, inputCase)
			if !strings.Contains(reply, "dibatalkan") {
				t.Fatalf("step %d (%q): unexpected reply %q", i, inputCase, reply)
			}
			if sessions.Active(testJID) {
				t.Fatalf("step %d: session still active after cancel", i)
			}
			if engine.mutations() != 0 {
				t.Fatalf("step %d: cancel must not mutate the ledger", i)
			}
			if user.Balance != 50000 {
				t.Fatalf("step %d: balance changed on cancel", i)
			}
		}
	}
}

func TestEditChoiceValidation(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepEditChoice, Target: core.Transaction{ID: 9}})

	reply := machine.Handle(context.Background(), user, "7")
	if !strings.Contains(reply, "1, 2, atau 3") {
		t.Fatalf("unexpected reply %q", reply)
	}
	sess, ok := sessions.Get(testJID)
	if !ok || sess.Step != StepEditChoice {
		t.Fatalf("invalid choice must keep the session in place")
	}
}

func TestEditAmountOnlyFlow(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	target := core.Transaction{ID: 9, Amount: 5000, Kind: core.Expense}
	sessions.Begin(testJID, &Session{Step: StepEditChoice, Target: target})
	ctx := context.Background()

	machine.Handle(ctx, user, "1")
	if sess, _ := sessions.Get(testJID); sess.Step != StepNewAmount {
		t.Fatalf("expected transition to StepNewAmount")
	}

	// A bad amount re-prompts without ending the session.
	reply := machine.Handle(ctx, user, "abc")
	if !strings.Contains(reply, "tidak valid") || !sessions.Active(testJID) {
		t.Fatalf("bad amount should re-prompt, got %q", reply)
	}

	// So does an amount too large to represent; it must not reach the ledger.
	reply = machine.Handle(ctx, user, "99999999999999999999jt")
	if !strings.Contains(reply, "tidak valid") || !sessions.Active(testJID) {
		t.Fatalf("oversized amount should re-prompt, got %q", reply)
	}
	if len(engine.edits) != 0 {
		t.Fatalf("oversized amount must not produce an edit")
	}

	machine.Handle(ctx, user, "7rb")
	if sessions.Active(testJID) {
		t.Fatalf("session should end after the edit completes")
	}
	if len(engine.edits) != 1 {
		t.Fatalf("expected one edit, got %d", len(engine.edits))
	}
	call := engine.edits[0]
	if call.amount == nil || *call.amount != 7000 || call.note != nil {
		t.Fatalf("unexpected edit payload: %+v", call)
	}
	if call.tx.ID != 9 {
		t.Fatalf("edit targeted wrong transaction %d", call.tx.ID)
	}
}

func TestEditNoteOnlyFlowClearsWithDash(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepEditChoice, Target: core.Transaction{ID: 9}})
	ctx := context.Background()

	machine.Handle(ctx, user, "2")
	reply := machine.Handle(ctx, user, "-")
	if !strings.Contains(reply, "Catatan saja") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(engine.edits) != 1 {
		t.Fatalf("expected one edit")
	}
	call := engine.edits[0]
	if call.amount != nil || call.note == nil || *call.note != "" {
		t.Fatalf("dash must clear the note: %+v", call)
	}
}

func TestEditBothFlow(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepEditChoice, Target: core.Transaction{ID: 9}})
	ctx := context.Background()

	machine.Handle(ctx, user, "3")
	reply := machine.Handle(ctx, user, "12,5k")
	if !strings.Contains(reply, "catatan baru") {
		t.Fatalf("expected note prompt, got %q", reply)
	}
	machine.Handle(ctx, user, "makan siang")

	if len(engine.edits) != 1 {
		t.Fatalf("expected one edit")
	}
	call := engine.edits[0]
	if call.amount == nil || *call.amount != 12500 {
		t.Fatalf("unexpected amount: %+v", call.amount)
	}
	if call.note == nil || *call.note != "makan siang" {
		t.Fatalf("unexpected note: %+v", call.note)
	}
}

func TestEditInsufficientBalanceEndsSession(t *testing.T) {
	engine := &fakeLedger{err: &ledger.InsufficientBalanceError{Current: 7000, Requested: 8000}}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepNewAmount, Choice: "1", Target: core.Transaction{ID: 9, Kind: core.Expense}})

	reply := machine.Handle(context.Background(), user, "8000")
	if !strings.Contains(reply, "Edit Gagal") || !strings.Contains(reply, "Rp7.000") || !strings.Contains(reply, "Rp8.000") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if sessions.Active(testJID) {
		t.Fatalf("ledger rejection must end the session")
	}
}

func TestDeleteFlow(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	candidates := []core.Transaction{
		{ID: 31, Amount: 10000, CategoryName: "makanan", Kind: core.Expense},
		{ID: 32, Amount: 20000, CategoryName: "transport", Kind: core.Expense},
		{ID: 33, Amount: 5000, CategoryName: "jajan", Kind: core.Expense},
	}
	sessions.Begin(testJID, &Session{Step: StepDeleteChoice, Candidates: candidates})
	ctx := context.Background()

	// Out-of-range and non-numeric indices re-prompt.
	for _, bad := range []string{"0", "4", "x"} {
		reply := machine.Handle(ctx, user, bad)
		if !strings.Contains(reply, "tidak valid") || !sessions.Active(testJID) {
			t.Fatalf("input %q should re-prompt, got %q", bad, reply)
		}
	}

	reply := machine.Handle(ctx, user, "2")
	if len(engine.deletes) != 1 || engine.deletes[0].ID != 32 {
		t.Fatalf("expected deletion of candidate 2, got %+v", engine.deletes)
	}
	// Deleting an expense of 20000 restores the balance by +20000.
	if user.Balance != 70000 {
		t.Fatalf("expected balance 70000, got %d", user.Balance)
	}
	if !strings.Contains(reply, "transport") || !strings.Contains(reply, "Rp70.000") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if sessions.Active(testJID) {
		t.Fatalf("session should end after delete")
	}
}

func TestResetFlowConfirmed(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepResetConfirm})
	ctx := context.Background()

	// Affirmation is case-insensitive.
	reply := machine.Handle(ctx, user, "YA")
	if !strings.Contains(reply, "KONFIRMASI AKHIR") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if sess, _ := sessions.Get(testJID); sess.Step != StepFinalResetConfirm {
		t.Fatalf("expected transition to final confirm")
	}

	reply = machine.Handle(ctx, user, ResetPhrase)
	if !strings.Contains(reply, "Reset Berhasil") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if engine.resets != 1 || user.Balance != 0 {
		t.Fatalf("reset not executed: resets=%d balance=%d", engine.resets, user.Balance)
	}
	if sessions.Active(testJID) {
		t.Fatalf("session should end after reset")
	}
}

func TestResetFirstConfirmAnythingElseCancels(t *testing.T) {
	engine := &fakeLedger{}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepResetConfirm})

	reply := machine.Handle(context.Background(), user, "mungkin")
	if !strings.Contains(reply, "dibatalkan") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if sessions.Active(testJID) || engine.mutations() != 0 {
		t.Fatalf("non-affirmative input must cancel with no mutation")
	}
}

func TestResetFinalNearMissAborts(t *testing.T) {
	nearMisses := []string{
		"reset data saya",
		"Reset Data Saya Sekarang", // wrong case: the final phrase is exact
		"reset data saya sekarang!",
	}
	for _, input := range nearMisses {
		engine := &fakeLedger{}
		machine, sessions := newTestMachine(engine)
		user := testUser()
		sessions.Begin(testJID, &Session{Step: StepFinalResetConfirm})

		reply := machine.Handle(context.Background(), user, input)
		if !strings.Contains(reply, "dibatalkan") {
			t.Fatalf("%q: unexpected reply %q", input, reply)
		}
		if engine.resets != 0 {
			t.Fatalf("%q: near miss must not reset", input)
		}
		if sessions.Active(testJID) {
			t.Fatalf("%q: session must end at Idle", input)
		}
	}
}

func TestPersistenceErrorEndsSession(t *testing.T) {
	engine := &fakeLedger{err: context.DeadlineExceeded}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepDeleteChoice, Candidates: []core.Transaction{{ID: 31}}})

	reply := machine.Handle(context.Background(), user, "1")
	if !strings.Contains(reply, "kesalahan") {
		t.Fatalf("unexpected reply %q", reply)
	}
	if sessions.Active(testJID) {
		t.Fatalf("persistence failure must tear the session down")
	}
}

func TestCriticalInconsistencyIsSurfacedDistinctly(t *testing.T) {
	engine := &fakeLedger{err: &ledger.CriticalInconsistencyError{Op: "delete", Cause: context.DeadlineExceeded}}
	machine, sessions := newTestMachine(engine)
	user := testUser()
	sessions.Begin(testJID, &Session{Step: StepDeleteChoice, Candidates: []core.Transaction{{ID: 31}}})

	reply := machine.Handle(context.Background(), user, "1")
	if !strings.Contains(reply, "verifikasi saldo") {
		t.Fatalf("critical inconsistency must tell the user to verify the balance, got %q", reply)
	}
	if sessions.Active(testJID) {
		t.Fatalf("session must end")
	}
}
