package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var publisherCmd = &cobra.Command{
	Use:   "publisher",
	Short: "Manage publishers",
}

var publisherAddCmd = &cobra.Command{
	Use:   "add [title] [description]",
	Short: "Create a publisher; the --as editor becomes its first editor",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		desk := openDesk(db)
		p, err := actingAs(cmd.Context(), desk)
		if err != nil {
			return err
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		pub, err := desk.CreatePublisher(cmd.Context(), p, args[0], description)
		if err != nil {
			return err
		}
		fmt.Printf("Added publisher [%d]: %s\n", pub.ID, pub.Title)
		return nil
	},
}

var publisherListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all publishers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		publishers, err := openDesk(db).ListPublishers(cmd.Context())
		if err != nil {
			return err
		}
		if len(publishers) == 0 {
			fmt.Println("No publishers yet. Add one with: newsdesk publisher add")
			return nil
		}
		for _, p := range publishers {
			fmt.Printf("  [%d] %s (%d editors, %d journalists)\n",
				p.ID, p.Title, len(p.EditorIDs), len(p.JournalistIDs))
		}
		return nil
	},
}

var publisherRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Delete a publisher; its articles become independent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid publisher ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		desk := openDesk(db)
		p, err := actingAs(cmd.Context(), desk)
		if err != nil {
			return err
		}
		if err := desk.DeletePublisher(cmd.Context(), p, id); err != nil {
			return err
		}
		fmt.Printf("Removed publisher [%d]\n", id)
		return nil
	},
}

var publisherJoinCmd = &cobra.Command{
	Use:   "join [publisher-id] [username]",
	Short: "Add a journalist to a publisher",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid publisher ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		desk := openDesk(db)
		p, err := actingAs(cmd.Context(), desk)
		if err != nil {
			return err
		}
		journalist, err := desk.PrincipalByUsername(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		pub, err := desk.AddPublisherJournalist(cmd.Context(), p, id, journalist.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s now writes for %s\n", journalist.Username, pub.Title)
		return nil
	},
}

func init() {
	publisherCmd.AddCommand(publisherAddCmd)
	publisherCmd.AddCommand(publisherListCmd)
	publisherCmd.AddCommand(publisherRemoveCmd)
	publisherCmd.AddCommand(publisherJoinCmd)
}
