package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/tracefile"
)

// FileValidation is the validation outcome for one archive file.
type FileValidation struct {
	File   string                      `json:"file"`
	Valid  bool                        `json:"valid"`
	Errors []tracefile.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results across all files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate session archive files",
		Long: `Validate session archive files against the archive schema.

Checks that each file is well-formed JSON and matches the session
document schema. Validation never touches the database.

Examples:
  agentbox validate traces/session_demo-0001.json
  agentbox validate traces/*.json --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	validator, err := tracefile.NewValidator()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile archive schema", err)
	}

	result := ValidationResult{Valid: true}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		doc, err := os.ReadFile(file)
		if err != nil {
			_ = formatter.Error(ErrCodeReadFile, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", file), err)
		}

		violations := validator.Validate(doc)
		result.Files = append(result.Files, FileValidation{
			File:   file,
			Valid:  len(violations) == 0,
			Errors: violations,
		})
		if len(violations) > 0 {
			result.Valid = false
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, file := range result.Files {
		fmt.Fprintf(formatter.Writer, "✓ %s\n", file.File)
	}
	fmt.Fprintf(formatter.Writer, "\nAll %d file(s) valid\n", len(result.Files))
	return nil
}

// outputValidationErrors outputs validation failures.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failed := 0
	for _, file := range result.Files {
		if !file.Valid {
			failed++
		}
	}

	if formatter.Format == "json" {
		first := firstViolation(result)
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", failed))
	}

	// Text format
	for _, file := range result.Files {
		if file.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", file.File)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", file.File)
		for _, violation := range file.Errors {
			if violation.Path != "" {
				fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n",
					violation.Code, violation.Path, violation.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "  %s: %s\n", violation.Code, violation.Message)
			}
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", failed))
}

// firstViolation returns the first schema violation across all files.
func firstViolation(result ValidationResult) tracefile.ValidationError {
	for _, file := range result.Files {
		if len(file.Errors) > 0 {
			return file.Errors[0]
		}
	}
	return tracefile.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}
