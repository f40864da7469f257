package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sahayak-labs/sahayak/internal/library"
	"github.com/sahayak-labs/sahayak/internal/model"
)

var (
	createSubject     string
	createTopic       string
	createGrade       string
	createLanguage    string
	createContent     string
	createExplanation string
	createContentFile string
	createAI          bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new visual aid",
	Long: `Create a visual aid and write it to the shared document store.

The write goes to the document store first. If the store is unreachable
the record is queued locally and replayed by 'sahayak sync' or the
daemon; the command reports this rather than failing silently.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		content := createContent
		if createContentFile != "" {
			data, err := os.ReadFile(createContentFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading content file: %v\n", err)
				os.Exit(1)
			}
			content = string(data)
		}

		rec := &model.VisualAid{
			TeacherID:     a.teacherID(),
			Subject:       createSubject,
			Topic:         createTopic,
			GradeLevel:    createGrade,
			Language:      createLanguage,
			VisualContent: content,
			Explanation:   createExplanation,
			AIGenerated:   createAI,
		}

		id, err := a.lib.Create(ctx, rec)
		if errors.Is(err, library.ErrQueuedForSync) {
			fmt.Printf("⚠ Document store unreachable; saved offline and queued for sync\n")
			fmt.Printf("   Run 'sahayak sync' once you are back online\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating visual aid: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✓ Created visual aid %s\n", id)
		fmt.Printf("   Subject: %s\n", rec.Subject)
		fmt.Printf("   Topic: %s\n", rec.Topic)
		if len(rec.Tags) > 0 {
			fmt.Printf("   Tags: %v\n", rec.Tags)
		}
	},
}

func init() {
	createCmd.Flags().StringVar(&createSubject, "subject", "", "subject (required)")
	createCmd.Flags().StringVar(&createTopic, "topic", "", "topic (required)")
	createCmd.Flags().StringVar(&createGrade, "grade", "", "grade level")
	createCmd.Flags().StringVar(&createLanguage, "language", "", "language code (default en)")
	createCmd.Flags().StringVar(&createContent, "content", "", "visual content text")
	createCmd.Flags().StringVar(&createContentFile, "content-file", "", "read visual content from a file")
	createCmd.Flags().StringVar(&createExplanation, "explanation", "", "teaching explanation")
	createCmd.Flags().BoolVar(&createAI, "ai", false, "mark the content as AI generated")
	_ = createCmd.MarkFlagRequired("subject")
	_ = createCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(createCmd)
}
