package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tonal/pkg/models"
	"github.com/pario-ai/tonal/pkg/tuner"
)

func newAdjustCmd(configPath *string) *cobra.Command {
	var (
		text      string
		formality float64
		verbosity float64
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Rewrite a piece of text once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			req := models.ToneRequest{Text: text}
			if cmd.Flags().Changed("formality") {
				req.FormalityLevel = &formality
			}
			if cmd.Flags().Changed("verbosity") {
				req.VerbosityLevel = &verbosity
			}

			res, err := a.tuner.Adjust(context.Background(), req)
			if err != nil {
				return describeAdjustError(err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			m := res.Metrics
			fmt.Println(res.Result)
			fmt.Println()
			fmt.Printf("formality: %s  verbosity: %s  source: %s\n", m.FormalityBand, m.VerbosityBand, res.Source)
			fmt.Printf("words: %d -> %d (target %d, %+.2f%%)", m.OriginalWordCount, m.ResultWordCount, m.TargetWordCount, m.PercentageChange)
			if m.Required2ndPass {
				fmt.Print(", second pass")
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "text to rewrite")
	cmd.Flags().Float64Var(&formality, "formality", 0, "formality level (0 professional, 100 casual)")
	cmd.Flags().Float64Var(&verbosity, "verbosity", 0, "verbosity level (0 concise, 100 expanded)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

// describeAdjustError keeps provider detail out of the user-facing message.
func describeAdjustError(err error) error {
	switch tuner.Kind(err) {
	case tuner.KindValidation:
		return err
	case tuner.KindRateLimited:
		return errors.New("provider rate limit reached, try again later")
	case tuner.KindUnauthorized:
		return errors.New("provider authentication error: check TONAL_API_KEY")
	default:
		return fmt.Errorf("tone adjustment failed: %w", err)
	}
}
