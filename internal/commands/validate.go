package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/pkg/lixiv/client"
)

var (
	validateRemote string
	validateToken  string
)

var validateCmd = &cobra.Command{
	Use:   "validate <kinds-file> <node.json>",
	Short: "Validate a node document",
	Long: `Validate a node document against a kind catalog.

The document has the form {"kind": "...", "data": {...}}. By default it is
checked locally against the kinds file. With --remote the document is sent
to a running server and checked against its catalog instead; the kinds file
is then omitted.

Examples:
  lixiv validate kinds.yaml tomatoes.json
  lixiv validate kinds.yaml tomatoes.json --inherit
  lixiv validate tomatoes.json --remote http://localhost:8080`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateRemote, "remote", "", "server URL to validate against")
	validateCmd.Flags().StringVar(&validateToken, "token", "", "bearer token for --remote (default: $LX_TOKEN)")
	validateCmd.Flags().BoolVar(&kindInherit, "inherit", false, "resolve fields across the parent chain")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateRemote != "" {
		if len(args) != 1 {
			return fmt.Errorf("--remote takes only the node document")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		return runRemoteValidation(cmd.Context(), cmd.OutOrStdout(), validateRemote, data)
	}

	if len(args) != 2 {
		return fmt.Errorf("expected a kinds file and a node document")
	}

	reg, err := kind.LoadFile(args[0], registryOptions()...)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	result, err := validation.New(reg).ValidateDocument(data)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return printResult(cmd.OutOrStdout(), result)
}

// runRemoteValidation validates the document via the API
func runRemoteValidation(ctx context.Context, w io.Writer, baseURL string, data []byte) error {
	token := validateToken
	if token == "" {
		token = os.Getenv("LX_TOKEN")
	}

	c, err := client.New(baseURL, client.WithToken(token))
	if err != nil {
		return err
	}

	remote, err := c.ValidateRaw(ctx, data)
	if err != nil {
		return err
	}

	result := &validation.ValidationResult{Valid: remote.Valid}
	for _, e := range remote.Errors {
		result.Errors = append(result.Errors, validation.ValidationError{
			Field:   e.Field,
			Message: e.Message,
			Value:   e.Value,
		})
	}
	return printResult(w, result)
}

func printResult(w io.Writer, result *validation.ValidationResult) error {
	if result.Valid {
		fmt.Fprintln(w, "✓ Document is valid")
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed:")
	for _, e := range result.Errors {
		if e.Value != nil {
			fmt.Fprintf(w, "  - %s: %s (value: %v)\n", e.Field, e.Message, e.Value)
		} else {
			fmt.Fprintf(w, "  - %s: %s\n", e.Field, e.Message)
		}
	}

	return fmt.Errorf("validation failed")
}
