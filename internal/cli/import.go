package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/tracefile"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportedSession is the outcome for one imported archive file.
type ImportedSession struct {
	File      string `json:"file"`
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	Events    int    `json:"events"`
	Snapshots int    `json:"snapshots"`
}

// ImportResult holds the import outcome across all files.
type ImportResult struct {
	Imported []ImportedSession `json:"imported"`
	Total    int               `json:"total"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import session archive files into the database",
		Long: `Import session archive files into the archive database.

Every file is validated against the archive schema before anything is
written; a session that already exists is replaced. Invalid files abort
the whole import.

Examples:
  agentbox import traces/session_demo-0001.json --db ./agentbox.db
  agentbox import traces/*.json --db ./agentbox.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, files []string, cmd *cobra.Command) error {
	ctx := context.Background()

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

	// Validate every file before writing anything, so a bad file in the
	// middle of the argument list cannot leave a half-finished import.
	docs := make([][]byte, 0, len(files))
	validation := ValidationResult{Valid: true}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		doc, err := os.ReadFile(file)
		if err != nil {
			_ = formatter.Error(ErrCodeReadFile, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", file), err)
		}
		docs = append(docs, doc)

		violations := validator.Validate(doc)
		validation.Files = append(validation.Files, FileValidation{
			File:   file,
			Valid:  len(violations) == 0,
			Errors: violations,
		})
		if len(violations) > 0 {
			validation.Valid = false
		}
	}
	if !validation.Valid {
		return outputValidationErrors(formatter, validation)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result := ImportResult{Imported: []ImportedSession{}}
	for i, file := range files {
		sess, err := tracefile.Decode(docs[i])
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to decode %s", file), err)
		}
		if err := st.SaveSession(ctx, sess); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to import %s", file), err)
		}

		formatter.VerboseLog("Imported %s from %s", sess.ID, file)
		result.Imported = append(result.Imported, ImportedSession{
			File:      file,
			SessionID: sess.ID,
			Name:      sess.Name,
			Events:    len(sess.Events),
			Snapshots: len(sess.Snapshots),
		})
	}
	result.Total = len(result.Imported)

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	for _, imported := range result.Imported {
		fmt.Fprintf(formatter.Writer, "✓ %s -> %s (%d events, %d snapshots)\n",
			imported.File, imported.SessionID, imported.Events, imported.Snapshots)
	}
	fmt.Fprintf(formatter.Writer, "\nImported %d session(s)\n", result.Total)

	return nil
}
