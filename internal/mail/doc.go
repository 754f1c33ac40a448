// Package mail renders and delivers the emails sent by account flows.
//
// Composer turns Markdown templates into a Message with a plain-text part
// (the Markdown itself) and an HTML part rendered by goldmark. Raw HTML in
// template data is not rendered.
//
// Two Mailer implementations exist:
//
//   - SMTPMailer: delivers through an SMTP relay (mail.driver: smtp)
//   - LogMailer: logs recipient and subject, body at debug (mail.driver: log)
package mail
