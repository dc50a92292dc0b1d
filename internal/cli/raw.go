package cli

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/ddq/internal/core/apperror"
	"github.com/vietddude/ddq/internal/infra/rest"
)

type rawOptions struct {
	method   string
	path     string
	query    []string
	body     string
	bodyFile string
}

func (a *app) newRawCmd() *cobra.Command {
	var opts rawOptions

	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Send an arbitrary API request",
		Example: `  ddq raw --path /api/v1/validate
  ddq raw --method POST --path /api/v1/monitor --body-file monitor.json
  ddq raw --path /api/v2/metrics --query 'filter[tags]=env:prod' --query window[seconds]=3600`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(opts.query)
			if err != nil {
				return err
			}
			body, err := opts.readBody()
			if err != nil {
				return err
			}

			client, err := a.client(cmd)
			if err != nil {
				return err
			}

			result, err := client.Raw(cmd.Context(), opts.method, opts.path, params, body)
			if err != nil {
				return err
			}
			return a.writeResult(result)
		},
	}

	cmd.Flags().StringVar(&opts.method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&opts.path, "path", "", "API path, or an absolute URL")
	cmd.Flags().StringArrayVar(&opts.query, "query", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.body, "body", "", "JSON request body")
	cmd.Flags().StringVar(&opts.bodyFile, "body-file", "", "read the JSON request body from a file")
	_ = cmd.MarkFlagRequired("path")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	return cmd
}

// parseParams splits each key=value on the first '='. Values may be empty
// and may contain '='; keys may not.
func parseParams(pairs []string) ([]rest.Param, error) {
	params := make([]rest.Param, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, apperror.Usage("Invalid --query %q. Use key=value.", pair)
		}
		if strings.TrimSpace(key) == "" {
			return nil, apperror.Usage("Invalid --query %q. Key must not be empty.", pair)
		}
		params = append(params, rest.Param{Key: key, Value: value})
	}
	return params, nil
}

func (o rawOptions) readBody() (json.RawMessage, error) {
	if o.body != "" && o.bodyFile != "" {
		return nil, apperror.Usage("Use either --body or --body-file, not both.")
	}

	data := []byte(o.body)
	if o.bodyFile != "" {
		var err error
		data, err = os.ReadFile(o.bodyFile)
		if err != nil {
			return nil, apperror.Usage("Failed to read --body-file: %s", err)
		}
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, apperror.Usage("Request body is not valid JSON.")
	}
	return json.RawMessage(data), nil
}
