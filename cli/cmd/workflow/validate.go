package workflow

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/engine/validator"
)

// validateConcurrency caps parallel file validation in bulk runs.
const validateConcurrency = 4

// fileResult is one file's validation outcome.
type fileResult struct {
	File   string            `json:"file"`
	Result *validator.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file> [file...]",
		Short: "Validate workflow documents against the node catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileFlag, _ := cmd.Flags().GetString("profile")
			modeFlag, _ := cmd.Flags().GetString("mode")
			relaxed, _ := cmd.Flags().GetBool("relaxed")

			profile, err := validator.ParseProfile(profileFlag)
			if err != nil {
				return err
			}
			mode, err := validator.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			cat, err := helpers.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			defer cat.Close()
			v := validator.New(cat)

			results := make([]fileResult, len(args))
			group, ctx := errgroup.WithContext(cmd.Context())
			group.SetLimit(validateConcurrency)
			for i, path := range args {
				group.Go(func() error {
					results[i] = fileResult{File: path}
					wf, err := loadWorkflowFile(path, relaxed)
					if err != nil {
						results[i].Error = core.RedactError(err)
						return nil
					}
					results[i].Result = v.Validate(ctx, wf, validator.Options{
						Profile: profile,
						Mode:    mode,
					})
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			if err := helpers.Output(cmd).WriteData(validationView(results)); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" || (r.Result != nil && !r.Result.Valid) {
					failed++
				}
			}
			if failed > 0 {
				return core.NewKindError(core.KindValidationFailed, nil, "VALIDATION_FAILED",
					fmt.Sprintf("%d of %d workflow(s) failed validation", failed, len(args)),
					map[string]any{"failed": failed, "total": len(args)})
			}
			return nil
		},
	}
	cmd.Flags().String("profile", "", "diagnostic profile: minimal, runtime, ai-friendly, strict")
	cmd.Flags().String("mode", "", "validation mode: structure, operation, full")
	cmd.Flags().Bool("relaxed", false, "accept relaxed JSON (comments, trailing commas, unquoted keys)")
	return cmd
}

// validationView renders bulk results as a table.
type validationView []fileResult

func (v validationView) TableHeader() []string {
	return []string{"FILE", "VALID", "ERRORS", "WARNINGS", "INFO"}
}

func (v validationView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		if r.Error != "" {
			rows = append(rows, []string{r.File, "false", r.Error, "", ""})
			continue
		}
		rows = append(rows, []string{
			r.File,
			strconv.FormatBool(r.Result.Valid),
			strconv.Itoa(r.Result.Stats.Errors),
			strconv.Itoa(r.Result.Stats.Warnings),
			strconv.Itoa(r.Result.Stats.Infos),
		})
	}
	return rows
}
