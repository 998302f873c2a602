package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/newsdesk/internal/feed"
	"github.com/TobiSchelling/newsdesk/internal/intake"
)

// --- import command ---

var importPublisher int64

var importCmd = &cobra.Command{
	Use:   "import [feed-url]",
	Short: "Import RSS or Atom items as drafts authored by the --as journalist",
	Args:  cobra.ExactArgs(1),
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
		var publisherID *int64
		if importPublisher > 0 {
			publisherID = &importPublisher
		}

		imp := intake.NewImporter(desk, intake.Options{
			FetchFullText: cfg.Intake.FetchFullText,
			MaxItems:      cfg.Intake.MaxItems,
			Timeout:       cfg.Intake.Timeout,
		}, logger)
		fmt.Printf("Importing %s...\n", args[0])
		result, err := imp.Import(cmd.Context(), p, args[0], publisherID)
		if err != nil {
			return err
		}

		fmt.Println("\nImport complete:")
		fmt.Printf("  Items found: %d\n", result.Found)
		fmt.Printf("  Drafts created: %d\n", result.Created)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

func init() {
	importCmd.Flags().Int64Var(&importPublisher, "publisher", 0, "Publisher ID to file the drafts under")
}

// --- review command ---

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Editorial review of submitted articles",
}

var reviewPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List drafts and declined articles",
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
		articles, err := desk.ListArticles(cmd.Context(), p, feed.Pending, 0)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Println("Nothing awaiting review.")
			return nil
		}
		for _, a := range articles {
			fmt.Printf("  [%d] %-8s %s\n", a.ID, a.State, a.Title)
			if a.DeclinedReason != "" {
				fmt.Printf("        declined: %s\n", a.DeclinedReason)
			}
		}
		return nil
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve an article and notify subscribers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid article ID: %s", args[0])
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
		approval, err := desk.ApproveArticle(cmd.Context(), p, id)
		if err != nil {
			return err
		}
		fmt.Printf("Approved [%d]: %s\n", approval.Article.ID, approval.Article.Title)
		if approval.Warning != nil {
			fmt.Printf("  Warning: %v\n", approval.Warning)
		}
		return nil
	},
}

var reviewDeclineCmd = &cobra.Command{
	Use:   "decline [id] [reason...]",
	Short: "Decline an article with an optional reason",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid article ID: %s", args[0])
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
		a, err := desk.DeclineArticle(cmd.Context(), p, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("Declined [%d]: %s\n", a.ID, a.Title)
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewPendingCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewDeclineCmd)
}
