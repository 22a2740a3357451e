package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/palmpay/palmpay/internal/cli"
	"github.com/palmpay/palmpay/internal/model"
)

func enrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll <name>",
		Short: "Enroll a new user by palm capture",
		Long: `Capture a multi-frame palm template from the scanner and register a
new user with the configured starting balance.

Hold your palm steady in front of the camera; frames without enough
detail are skipped automatically. Press Ctrl+C to cancel - nothing is
saved for a cancelled enrollment.`,
		Args: cobra.ExactArgs(1),
		RunE: runEnroll,
	}

	cmd.Flags().StringP("type", "t", string(model.UserTypePermanent), "user category (Permanent or Tourist)")

	return cmd
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := args[0]
	userType, _ := cmd.Flags().GetString("type")

	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store, "enroll")

	eng, cleanup := newEngine(store, &consoleStatus{})
	defer cleanup()

	fmt.Println(cli.FormatTitle("Enroll User")) //nolint:forbidigo // User-facing output

	user, err := eng.EnrollUser(ctx, name, model.UserType(userType))
	if err != nil {
		if interrupts.WasInterrupted() {
			// The handler already told the user nothing was saved.
			return nil
		}
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Enrolled %s %q with id %d (balance ₹%.2f)",
		user.Type, user.Name, user.ID, user.Balance))) //nolint:forbidigo // User-facing output

	return nil
}
