package telegram

import (
	"context"
	"errors"
	"fmt"
)

type sender interface {
	SendWithButtons(ctx context.Context, chatID int64, text string, rows [][]Button) error
}

// OperatorNotifier fans a message out to every operator chat.
type OperatorNotifier struct {
	bot     sender
	chatIDs []int64
}

func NewOperatorNotifier(bot *Bot, chatIDs []int64) *OperatorNotifier {
	n := &OperatorNotifier{chatIDs: append([]int64(nil), chatIDs...)}
	if bot != nil {
		n.bot = bot
	}
	return n
}

func (n *OperatorNotifier) Notify(ctx context.Context, text string, rows [][]Button) error {
	if n == nil || n.bot == nil || len(n.chatIDs) == 0 {
		return nil
	}

	var errs []error
	for _, chatID := range n.chatIDs {
		if err := n.bot.SendWithButtons(ctx, chatID, text, rows); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

const (
	CallbackConfirmDeposit = "dep:confirm:"
	CallbackRejectDeposit  = "dep:reject:"
)

// DepositButtons is the Confirm/Reject keyboard attached to a pending deposit.
func DepositButtons(reference string) [][]Button {
	return [][]Button{{
		{Text: "Confirm", Data: CallbackConfirmDeposit + reference},
		{Text: "Reject", Data: CallbackRejectDeposit + reference},
	}}
}

// DepositRequested tells operators a user is waiting for a transfer to be checked.
func (n *OperatorNotifier) DepositRequested(ctx context.Context, reference, amount, email string) error {
	text := fmt.Sprintf("New deposit request\nReference: %s\nAmount: %s\nUser: %s", reference, amount, email)
	return n.Notify(ctx, text, DepositButtons(reference))
}
