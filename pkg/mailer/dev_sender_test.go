package mailer_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifier/pkg/mailer"
)

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("writes body and metadata files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		sender := mailer.NewDevSender(dir)

		err := sender.SendEmail(ctx, mailer.SendEmailParams{
			SendTo:   "user@example.com",
			Subject:  "Invoice ready",
			BodyText: "Your invoice is attached.",
			Tag:      "req-123",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		var bodyFile, metaFile string
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case ".txt":
				bodyFile = filepath.Join(dir, e.Name())
			case ".json":
				metaFile = filepath.Join(dir, e.Name())
			}
		}
		require.NotEmpty(t, bodyFile)
		require.NotEmpty(t, metaFile)

		body, err := os.ReadFile(bodyFile)
		require.NoError(t, err)
		assert.Equal(t, "Your invoice is attached.", string(body))

		meta, err := os.ReadFile(metaFile)
		require.NoError(t, err)
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(meta, &decoded))
		assert.Equal(t, "user@example.com", decoded["send_to"])
		assert.Equal(t, "Invoice ready", decoded["subject"])
		assert.Equal(t, "req-123", decoded["tag"])
	})

	t.Run("filenames carry the sanitized tag", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		sender := mailer.NewDevSender(dir)

		err := sender.SendEmail(ctx, mailer.SendEmailParams{
			SendTo:   "user@example.com",
			Subject:  "Hello",
			BodyText: "body",
			Tag:      "Weird/Tag Name!",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.True(t, strings.Contains(e.Name(), "weirdtag_name"),
				"unexpected filename %q", e.Name())
		}
	})

	t.Run("creates the directory on first send", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested", "emails")
		sender := mailer.NewDevSender(dir)

		err := sender.SendEmail(ctx, mailer.SendEmailParams{
			SendTo:   "user@example.com",
			Subject:  "Hello",
			BodyText: "body",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("rejects invalid params before touching disk", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "untouched")
		sender := mailer.NewDevSender(dir)

		err := sender.SendEmail(ctx, mailer.SendEmailParams{
			SendTo:   "broken",
			Subject:  "Hello",
			BodyText: "body",
		})
		require.ErrorIs(t, err, mailer.ErrInvalidParams)

		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})
}
