package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/newsdesk/internal/role"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var (
	userRole string
	userBio  string
)

var userAddCmd = &cobra.Command{
	Use:   "add [username] [email]",
	Short: "Register a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := role.Parse(userRole)
		if err != nil {
			return err
		}
		u, err := openDesk(db).RegisterUser(cmd.Context(), args[0], args[1], userBio, r)
		if err != nil {
			return err
		}
		fmt.Printf("Added user [%d]: %s (%s)\n", u.ID, u.Username, u.Role)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		users, err := openDesk(db).Users(cmd.Context())
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No users yet. Add one with: newsdesk user add")
			return nil
		}
		for _, u := range users {
			fmt.Printf("  [%d] %-20s %-11s %s\n", u.ID, u.Username, u.Role, u.Email)
		}
		return nil
	},
}

var userRoleCmd = &cobra.Command{
	Use:   "role [username] [role]",
	Short: "Change a user's role; leaving reader drops their subscriptions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := role.Parse(args[1])
		if err != nil {
			return err
		}
		desk := openDesk(db)
		p, err := desk.PrincipalByUsername(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		updated, err := desk.ChangeRole(cmd.Context(), p, r)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", updated.Username, updated.Role)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVarP(&userRole, "role", "r", "reader", "Role: reader, journalist or editor")
	userAddCmd.Flags().StringVar(&userBio, "bio", "", "Short biography")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userRoleCmd)
}
