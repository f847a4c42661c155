// Package mail sends console notifications over SMTP.
//
// SMTPSender reads its host, port, credentials, and sender address from
// the settings store on every send, so mail configuration changes made
// through the admin API take effect without a restart.
package mail
