// Package mailer provides the email delivery transport used by the email
// channel adapter. EmailSender is the contract; NewPostmarkClient builds a
// sender backed by Postmark's transactional API and NewDevSender one that
// writes outgoing emails to disk for local development.
package mailer
