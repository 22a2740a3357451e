package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palmpay/palmpay/internal/cli"
	"github.com/palmpay/palmpay/internal/ledger"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage enrolled users",
		Long:  `List, inspect, and delete enrolled users and their wallets.`,
	}

	// Subcommands
	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersHistoryCmd())
	cmd.AddCommand(usersDeleteCmd())

	return cmd
}

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all enrolled users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store, "users")

			users, err := store.ListUsers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			fmt.Println(cli.FormatTitle("Enrolled Users")) //nolint:forbidigo // User-facing output
			if len(users) == 0 {
				fmt.Println(cli.SubtleStyle.Render("(no users enrolled)")) //nolint:forbidigo // User-facing output
				return nil
			}

			header := fmt.Sprintf("%-6s %-24s %-10s %12s  %s", "ID", "Name", "Type", "Balance ₹", "Registered")
			fmt.Println(cli.TableHeaderStyle.Render(header)) //nolint:forbidigo // User-facing output
			for _, u := range users {
				fmt.Printf("%-6d %-24s %-10s %12.2f  %s\n", //nolint:forbidigo // User-facing output
					u.ID, u.Name, u.Type, u.Balance, u.RegisteredAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func usersHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <user-id>",
		Short: "Show a user's transaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store, "users")

			txns, err := ledger.New(store).History(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Transactions for user %d", userID))) //nolint:forbidigo // User-facing output
			if len(txns) == 0 {
				fmt.Println(cli.SubtleStyle.Render("(no transactions)")) //nolint:forbidigo // User-facing output
				return nil
			}
			for _, txn := range txns {
				fmt.Printf("%-6d %10.2f  %s\n", //nolint:forbidigo // User-facing output
					txn.ID, txn.Amount, txn.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func usersDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user and their transactions",
		Long: `Permanently delete a user, their palm template and every transaction
referencing them, as one atomic operation.`,
		Args: cobra.ExactArgs(1),
		RunE: runUsersDelete,
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	force, _ := cmd.Flags().GetBool("force")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store, "users")

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	fmt.Println(cli.FormatTitle("Delete User"))         //nolint:forbidigo // User-facing output
	fmt.Printf("User ID: %d\n", user.ID)                //nolint:forbidigo // User-facing output
	fmt.Printf("Name: %s\n", user.Name)                 //nolint:forbidigo // User-facing output
	fmt.Printf("Type: %s\n", user.Type)                 //nolint:forbidigo // User-facing output
	fmt.Printf("Balance: ₹%.2f\n", user.Balance)        //nolint:forbidigo // User-facing output
	fmt.Println()                                       //nolint:forbidigo // User-facing output

	if !force {
		fmt.Printf("Are you sure you want to permanently delete user %d and their transactions? (y/N): ", userID) //nolint:forbidigo // User-facing output
		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			response = "n"
		}
		if strings.ToLower(response) != "y" {
			fmt.Println("Operation canceled.") //nolint:forbidigo // User-facing output
			return nil
		}
	}

	if err := store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("User %d deleted", userID))) //nolint:forbidigo // User-facing output

	return nil
}
