package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/quill/pkg/models"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		text      string
		opts      []string
		requestID string
	)

	cmd := &cobra.Command{
		Use:   "run <action>",
		Short: "Run a single action and print the JSON response",
		Long: "Run a single action and print the JSON response envelope.\n" +
			"Content actions read text from --text, or from stdin when --text is empty.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act := models.Action(args[0])

			options, err := parseOptions(opts)
			if err != nil {
				return err
			}
			if text == "" && act.IsContent() {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			a, err := newApp(context.Background(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			resp := a.router.Handle(cmd.Context(), models.ActionRequest{
				Action:    act,
				Text:      text,
				Options:   options,
				RequestID: requestID,
				Source:    models.SourceCLI,
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
			if !resp.Success {
				return errors.New(resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "input text (default: read stdin)")
	cmd.Flags().StringArrayVarP(&opts, "opt", "o", nil, "action option as key=value (repeatable)")
	cmd.Flags().StringVar(&requestID, "request-id", "", "correlation id (default: generated)")
	return cmd
}

// parseOptions turns key=value pairs into an options map. Values that parse
// as JSON (numbers, booleans, objects) keep their type; anything else is a string.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q: want key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		options[key] = v
	}
	return options, nil
}

