package mailer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifier/pkg/mailer"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := mailer.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Invoice ready",
		BodyText: "Your invoice is attached.",
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*mailer.SendEmailParams)
	}{
		{"missing recipient", func(p *mailer.SendEmailParams) { p.SendTo = "" }},
		{"malformed address", func(p *mailer.SendEmailParams) { p.SendTo = "not-an-email" }},
		{"address without domain", func(p *mailer.SendEmailParams) { p.SendTo = "user@localhost" }},
		{"address with spaces", func(p *mailer.SendEmailParams) { p.SendTo = "user @example.com" }},
		{"missing subject", func(p *mailer.SendEmailParams) { p.Subject = "" }},
		{"missing body", func(p *mailer.SendEmailParams) { p.BodyText = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			params := valid
			tt.mutate(&params)
			assert.ErrorIs(t, params.Validate(), mailer.ErrInvalidParams)
		})
	}
}
