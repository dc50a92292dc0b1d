package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vietddude/ddq/internal/core/apperror"
	"github.com/vietddude/ddq/internal/core/config"
)

// fallbackEnvelope is printed when an error envelope cannot be encoded.
const fallbackEnvelope = `{"error":{"category":"internal","exit_code":1,"retryable":false,"message":"failed to encode error"}}`

// writeResult prints a successful payload on stdout.
func (a *app) writeResult(v any) error {
	data, err := a.encode(v)
	if err != nil {
		return apperror.Internal(fmt.Errorf("encode output: %w", err))
	}
	if _, err := fmt.Fprintln(a.stdout, string(data)); err != nil {
		return apperror.Internal(fmt.Errorf("write output: %w", err))
	}
	return nil
}

// writeError prints the error envelope on stderr.
func (a *app) writeError(e *apperror.AppError) {
	data, err := a.encode(e)
	if err != nil {
		data = []byte(fallbackEnvelope)
	}
	_, _ = fmt.Fprintln(a.stderr, string(data))
}

func (a *app) encode(v any) ([]byte, error) {
	if a.compact() {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// compact reports the output mode. Before configuration is resolved, the
// --output and --compact flags decide.
func (a *app) compact() bool {
	if a.cfg != nil {
		return a.cfg.Compact
	}
	pretty := strings.EqualFold(strings.TrimSpace(a.flags.output), string(config.OutputPretty))
	return a.flags.compact || !pretty
}
