package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// runCLI executes the CLI and captures its streams.
func runCLI(t *testing.T, stdin []byte, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var in io.Reader = &bytes.Buffer{}
	if stdin != nil {
		in = bytes.NewReader(stdin)
	}
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	code = Execute(args, in, out, errOut)
	return out.String(), errOut.String(), code
}

// writeTestConfig writes body as supdto.yml in dir and returns its path.
func writeTestConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "supdto.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeTypeFile(t *testing.T, dir, name string, typ dto.AnyType) string {
	t.Helper()
	data, err := dtojson.TypeToJSON(typ)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeValueFile(t *testing.T, dir, name string, v *dto.AnyValue) string {
	t.Helper()
	data, err := dtojson.ValueToJSON(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// decodeResponse parses a JSON-format CLI response with a typed payload.
func decodeResponse[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	require.Equal(t, "ok", resp.Status, "output: %s", out)
	return resp.Data
}
