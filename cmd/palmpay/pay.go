package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/palmpay/palmpay/internal/cli"
	"github.com/palmpay/palmpay/internal/common"
)

func payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <amount>",
		Short: "Verify a palm and charge the matched wallet",
		Long: `Identify the palm presented to the scanner against every enrolled
user and debit the amount from the matched wallet.

Verification is a single stateless attempt: if no enrolled palm matches
confidently within the capture window, nothing is charged.`,
		Args: cobra.ExactArgs(1),
		RunE: runPay,
	}
}

func runPay(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", common.ErrInvalidAmount)
	}

	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store, "pay")

	eng, cleanup := newEngine(store, &consoleStatus{})
	defer cleanup()

	fmt.Println(cli.FormatTitle("Verify Palm and Pay")) //nolint:forbidigo // User-facing output

	receipt, err := eng.ChargeVerifiedUser(ctx, amount)
	if err != nil {
		if interrupts.WasInterrupted() {
			// The handler already told the user nothing was saved.
			return nil
		}
		return payError(err)
	}

	summary := fmt.Sprintf("Receipt %s\n", receipt.ID) +
		fmt.Sprintf("  • Paid by: %s (user %d)\n", receipt.Name, receipt.UserID) +
		fmt.Sprintf("  • Amount: ₹%.2f\n", receipt.Amount) +
		fmt.Sprintf("  • New balance: ₹%.2f\n", receipt.NewBalance) +
		fmt.Sprintf("  • Time: %s", receipt.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Println(cli.RenderBox(cli.WalletIcon+" Payment Successful", summary)) //nolint:forbidigo // User-facing output

	return nil
}

// payError translates the verification/ledger taxonomy into messages a
// kiosk operator can act on.
func payError(err error) error {
	var insufficient *common.InsufficientFundsError
	switch {
	case errors.Is(err, common.ErrNoEnrolledUsers):
		return common.NewUserError("no users are registered in the system", err)
	case errors.Is(err, common.ErrNoConfidentMatch):
		return common.NewUserError("verification failed: user not recognized", err)
	case errors.Is(err, common.ErrCaptureCancelled):
		return common.NewUserError("verification cancelled", err)
	case errors.As(err, &insufficient):
		return common.NewUserError(
			fmt.Sprintf("payment failed: insufficient funds (balance ₹%.2f)", insufficient.Balance), err)
	default:
		return err
	}
}
