package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	tginfra "github.com/ivankudzin/smmshop/internal/infra/telegram"
	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	walletsvc "github.com/ivankudzin/smmshop/internal/services/wallet"
)

const pendingListLimit = 10

const helpText = "Operator commands:\n" +
	"/pending - deposits awaiting a transfer check\n" +
	"/confirm REF - credit a deposit\n" +
	"/reject REF - reject a deposit\n" +
	"/order ID STATUS - move an order (pending, processing, completed, cancelled)"

type DepositDesk interface {
	ListPending(ctx context.Context, limit int) ([]model.Transaction, error)
	ConfirmDeposit(ctx context.Context, reference string) (walletsvc.ConfirmResult, error)
	RejectDeposit(ctx context.Context, reference string) (model.Transaction, error)
	ReceiptURL(ctx context.Context, txn model.Transaction) (string, error)
}

type OrderDesk interface {
	SetStatus(ctx context.Context, orderID int64, rawStatus string) (model.Order, error)
}

type messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendWithButtons(ctx context.Context, chatID int64, text string, rows [][]tginfra.Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Console turns operator chat commands into wallet and order operations.
// Chats outside the operator list are ignored.
type Console struct {
	deposits  DepositDesk
	orders    OrderDesk
	out       messenger
	operators map[int64]struct{}
	logger    *zap.Logger
}

func NewConsole(deposits DepositDesk, orders OrderDesk, out messenger, operatorChatIDs []int64, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	operators := make(map[int64]struct{}, len(operatorChatIDs))
	for _, id := range operatorChatIDs {
		operators[id] = struct{}{}
	}
	return &Console{
		deposits:  deposits,
		orders:    orders,
		out:       out,
		operators: operators,
		logger:    logger,
	}
}

func (c *Console) isOperator(chatID int64) bool {
	_, ok := c.operators[chatID]
	return ok
}

func (c *Console) HandleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if !c.isOperator(update.ChatID) {
		c.logger.Debug("ignoring command from unknown chat", zap.Int64("chat_id", update.ChatID))
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start", "help":
		return c.out.SendText(ctx, update.ChatID, helpText)
	case "pending":
		return c.sendPending(ctx, update.ChatID)
	case "confirm":
		return c.out.SendText(ctx, update.ChatID, c.confirm(ctx, update.Args))
	case "reject":
		return c.out.SendText(ctx, update.ChatID, c.reject(ctx, update.Args))
	case "order":
		return c.out.SendText(ctx, update.ChatID, c.setOrderStatus(ctx, update.Args))
	default:
		return c.out.SendText(ctx, update.ChatID, helpText)
	}
}

func (c *Console) HandleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if !c.isOperator(update.ChatID) {
		return c.out.AnswerCallback(ctx, update.CallbackID, "Not allowed")
	}

	data := strings.TrimSpace(update.Data)
	var reply string
	switch {
	case strings.HasPrefix(data, tginfra.CallbackConfirmDeposit):
		reply = c.confirm(ctx, strings.TrimPrefix(data, tginfra.CallbackConfirmDeposit))
	case strings.HasPrefix(data, tginfra.CallbackRejectDeposit):
		reply = c.reject(ctx, strings.TrimPrefix(data, tginfra.CallbackRejectDeposit))
	default:
		return c.out.AnswerCallback(ctx, update.CallbackID, "Unknown action")
	}

	if err := c.out.AnswerCallback(ctx, update.CallbackID, "Done"); err != nil {
		return err
	}
	return c.out.SendText(ctx, update.ChatID, reply)
}

func (c *Console) sendPending(ctx context.Context, chatID int64) error {
	items, err := c.deposits.ListPending(ctx, pendingListLimit)
	if err != nil {
		c.logger.Error("list pending deposits", zap.Error(err))
		return c.out.SendText(ctx, chatID, "Could not load pending deposits.")
	}
	if len(items) == 0 {
		return c.out.SendText(ctx, chatID, "No pending deposits.")
	}

	for _, txn := range items {
		if err := c.out.SendWithButtons(ctx, chatID, c.describeDeposit(ctx, txn), tginfra.DepositButtons(txn.Reference)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) describeDeposit(ctx context.Context, txn model.Transaction) string {
	lines := []string{
		"Reference: " + txn.Reference,
		"Amount: " + txn.Amount.StringFixed(2),
		"Requested: " + txn.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if txn.ReceiptKey == "" {
		lines = append(lines, "Receipt: none")
	} else if url, err := c.deposits.ReceiptURL(ctx, txn); err != nil || url == "" {
		lines = append(lines, "Receipt: uploaded")
	} else {
		lines = append(lines, "Receipt: "+url)
	}
	return strings.Join(lines, "\n")
}

func (c *Console) confirm(ctx context.Context, rawRef string) string {
	ref := strings.ToUpper(strings.TrimSpace(rawRef))
	if ref == "" {
		return "Usage: /confirm REF"
	}
	res, err := c.deposits.ConfirmDeposit(ctx, ref)
	if err != nil {
		return c.depositErrorText(ref, err)
	}
	if res.AlreadyCompleted {
		return fmt.Sprintf("Deposit %s was already credited.", ref)
	}
	return fmt.Sprintf("Deposit %s confirmed: +%s, balance %s.", ref, res.Transaction.Amount.StringFixed(2), res.Balance.StringFixed(2))
}

func (c *Console) reject(ctx context.Context, rawRef string) string {
	ref := strings.ToUpper(strings.TrimSpace(rawRef))
	if ref == "" {
		return "Usage: /reject REF"
	}
	if _, err := c.deposits.RejectDeposit(ctx, ref); err != nil {
		return c.depositErrorText(ref, err)
	}
	return fmt.Sprintf("Deposit %s rejected.", ref)
}

func (c *Console) depositErrorText(ref string, err error) string {
	switch {
	case errors.Is(err, walletsvc.ErrInvalidReference):
		return fmt.Sprintf("%q is not a deposit reference.", ref)
	case errors.Is(err, walletsvc.ErrDepositNotFound):
		return fmt.Sprintf("Deposit %s not found.", ref)
	case errors.Is(err, walletsvc.ErrDepositNotPending):
		return fmt.Sprintf("Deposit %s is no longer pending.", ref)
	case errors.Is(err, walletsvc.ErrBalanceOverflow):
		return fmt.Sprintf("Deposit %s would push the wallet past its balance limit. Reject it instead.", ref)
	default:
		c.logger.Error("deposit operation failed", zap.Error(err), zap.String("reference", ref))
		return fmt.Sprintf("Deposit %s: operation failed, try again.", ref)
	}
}

func (c *Console) setOrderStatus(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Usage: /order ID STATUS"
	}
	orderID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || orderID <= 0 {
		return "Order ID must be a positive number."
	}

	order, err := c.orders.SetStatus(ctx, orderID, fields[1])
	switch {
	case err == nil:
		return fmt.Sprintf("Order #%d is now %s.", order.ID, order.Status)
	case errors.Is(err, ordersvc.ErrUnknownStatus):
		return "Unknown status. Use one of: " + statusList() + "."
	case errors.Is(err, ordersvc.ErrNotFound):
		return fmt.Sprintf("Order #%d not found.", orderID)
	default:
		c.logger.Error("order status update failed", zap.Error(err), zap.Int64("order_id", orderID))
		return fmt.Sprintf("Order #%d: update failed, try again.", orderID)
	}
}

func statusList() string {
	names := make([]string, 0, len(enums.OrderStatuses))
	for _, s := range enums.OrderStatuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
