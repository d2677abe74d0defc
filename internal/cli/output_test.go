package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wishrank/internal/engine"
	"github.com/roach88/wishrank/internal/key"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "item not found", map[string]string{"id": "x"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "item not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("plain value"))
	assert.Equal(t, "plain value\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success(deleteResult{ListID: "wishes", ID: "item-1"}))
	assert.Equal(t, "Deleted item-1 from wishes\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("INVALID_ARGUMENT", "bad move", "above_id")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [INVALID_ARGUMENT]: bad move")
	assert.Contains(t, buf.String(), "Details: above_id")
}

func TestOutputFormatter_PromptWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	text := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	assert.Same(t, out, text.PromptWriter())

	js := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	assert.Same(t, errOut, js.PromptWriter())

	noErr := &OutputFormatter{Format: "json", Writer: out}
	assert.Same(t, out, noErr.PromptWriter())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail("failed to move item", engine.NewNotFoundError("wishes", "x"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	buf.Reset()
	text := &OutputFormatter{Format: "text", Writer: buf}
	err = text.Fail("failed", errors.New("disk full"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, buf.String(), "text mode leaves printing to main")
}

func TestEngineExitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", engine.NewNotFoundError("wishes", "x"), ExitCommandError},
		{"invalid argument", engine.NewInvalidArgumentError("wishes", "bad"), ExitCommandError},
		{"precision", engine.NewPrecisionError("wishes", "x", key.ErrPrecisionExhausted), ExitFailure},
		{"other", fmt.Errorf("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := engineExitError("op", tt.err)
			assert.Equal(t, tt.code, exit.Code)
			assert.ErrorIs(t, exit, tt.err)
		})
	}

	assert.Contains(t, engineExitError("op", key.ErrPrecisionExhausted).Error(), "wishrank rebalance")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitCommandError, "bad", nil))))
}
