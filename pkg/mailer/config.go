package mailer

// Config holds email transport configuration.
// Postmark tokens are optional to support development environments where
// outgoing email is written to disk instead of sent. SenderEmail is required
// as it establishes the sender identity for all outbound notifications.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	ReplyToEmail         string `env:"REPLY_TO_EMAIL"`
	DevOutputDir         string `env:"MAILER_DEV_DIR" envDefault:"./tmp/emails"`
}
