package telegram

import (
	"context"
	"errors"
	"testing"
)

type fakeSender struct {
	sent   []int64
	failOn int64
}

func (f *fakeSender) SendWithButtons(_ context.Context, chatID int64, _ string, _ [][]Button) error {
	if chatID == f.failOn {
		return errors.New("blocked")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func TestOperatorNotifierFansOutAndJoinsErrors(t *testing.T) {
	fake := &fakeSender{failOn: 2}
	n := &OperatorNotifier{bot: fake, chatIDs: []int64{1, 2, 3}}

	err := n.Notify(context.Background(), "hello", nil)
	if err == nil {
		t.Fatalf("expected joined error for chat 2")
	}
	if len(fake.sent) != 2 || fake.sent[0] != 1 || fake.sent[1] != 3 {
		t.Fatalf("unexpected deliveries: %v", fake.sent)
	}
}

func TestOperatorNotifierWithoutBotIsNoop(t *testing.T) {
	n := NewOperatorNotifier(nil, []int64{1})
	if err := n.Notify(context.Background(), "hello", nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestDepositButtonsCarryReference(t *testing.T) {
	rows := DepositButtons("REF004213")
	if len(rows) != 1 || len(rows[0]) != 2 {
		t.Fatalf("unexpected keyboard shape: %v", rows)
	}
	if rows[0][0].Data != "dep:confirm:REF004213" || rows[0][1].Data != "dep:reject:REF004213" {
		t.Fatalf("unexpected callback data: %+v", rows[0])
	}
}
