package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate <id> <rating>",
	Short: "Rate a visual aid (1-5)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		rating, err := strconv.Atoi(args[1])
		if err != nil || rating < 1 || rating > 5 {
			fmt.Fprintf(os.Stderr, "Error: rating must be a number from 1 to 5\n")
			os.Exit(1)
		}

		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := a.lib.Rate(ctx, args[0], rating); err != nil {
			fmt.Fprintf(os.Stderr, "Error rating visual aid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Rated %s: %d\n", args[0], rating)
	},
}

var useCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Record one classroom use of a visual aid",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := a.lib.IncrementUsage(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording usage: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Recorded usage of %s\n", args[0])
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <id>",
	Short: "Share a visual aid with all teachers",
	Long: `Make a visual aid public so it appears in subject browsing,
search, and trending for every teacher. Sharing cannot be undone.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := a.lib.Share(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error sharing visual aid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Shared %s publicly\n", args[0])
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a visual aid",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := a.lib.Delete(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting visual aid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Deleted %s\n", args[0])
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show usage analytics for your library",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		stats, err := a.lib.Analytics(ctx, a.teacherID())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading analytics: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n📊 Library Analytics\n\n")
		fmt.Printf("Visual aids: %d\n", stats.TotalVisualAids)
		fmt.Printf("Total uses: %d\n", stats.TotalUsage)
		fmt.Printf("Average rating: %.2f\n", stats.AverageRating)
		if stats.MostUsedSubject != "" {
			fmt.Printf("Most used subject: %s\n", stats.MostUsedSubject)
		}
		if len(stats.SubjectCounts) > 0 {
			fmt.Printf("\nBy subject:\n")
			for subject, count := range stats.SubjectCounts {
				fmt.Printf("   %s: %d\n", subject, count)
			}
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(analyticsCmd)
}
