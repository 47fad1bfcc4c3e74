package entry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Application(t *testing.T) {
	t.Run("Fail logs the error and exits with status 1", func(t *testing.T) {
		var buf bytes.Buffer
		exitCode := -1
		app := NewApplication("test", WithOutput(&buf), withExitFunc(func(code int) { exitCode = code }))

		app.Fail("Webhook delivery failed", errors.New("client error: 404 Not Found"))
		assert.Equal(t, 1, exitCode)
		assert.Contains(t, buf.String(), "::error::Webhook delivery failed: client error: 404 Not Found\n")
		assert.Error(t, app.Context().Err())
	})

	t.Run("Stop cancels the context without exiting", func(t *testing.T) {
		var buf bytes.Buffer
		exited := false
		app := NewApplication("test", WithOutput(&buf), withExitFunc(func(int) { exited = true }))

		assert.NoError(t, app.Context().Err())
		app.Stop()
		assert.Error(t, app.Context().Err())
		assert.False(t, exited)
	})

	t.Run("structured formats tag records with the app name", func(t *testing.T) {
		var buf bytes.Buffer
		app := NewApplication("rook-webhook", WithOutput(&buf), WithLogFormat(FormatJSON, false), withExitFunc(func(int) {}))
		defer app.Stop()

		app.Log().Info("hello")
		assert.Contains(t, buf.String(), `"app":"rook-webhook"`)
	})
}
