package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sahayak-labs/sahayak/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your visual aids",
	Long: `List your visual aids, newest first.

When the document store is unreachable this serves the local cache
mirror instead, which may omit records created on other devices and
anything still waiting in the offline queue.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		records, err := a.lib.ListByTeacher(ctx, a.teacherID())
		if err != nil {
			// The app shows an empty shelf rather than an error page.
			fmt.Fprintf(os.Stderr, "Warning: could not load library: %v\n", err)
			records = nil
		}
		printRecords(records)
	},
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects <subject>",
	Short: "Browse public visual aids for a subject",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		records, err := a.lib.ListBySubject(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not browse subject: %v\n", err)
			records = nil
		}
		printRecords(records)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search public visual aids",
	Long:  `Search public visual aids by topic, subject, or tag (case-insensitive).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		records, err := a.lib.Search(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: search failed: %v\n", err)
			records = nil
		}
		printRecords(records)
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the most used public visual aids",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		records, err := a.lib.Trending(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load trending: %v\n", err)
			records = nil
		}
		printRecords(records)
	},
}

func printRecords(records []model.VisualAid) {
	if len(records) == 0 {
		fmt.Println("No visual aids found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBJECT\tTOPIC\tGRADE\tUSES\tRATING\tPUBLIC")
	for _, rec := range records {
		public := ""
		if rec.IsPublic {
			public = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1f\t%s\n",
			rec.ID, rec.Subject, rec.Topic, rec.GradeLevel,
			rec.UsageCount, rec.AverageRating, public)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(trendingCmd)
}
