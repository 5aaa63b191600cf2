// Package notify delivers OTP emails out of band.
//
// # Components
//
//   - [Sender] is the delivery interface. [SMTPSender] sends through gomail,
//     [LogSender] writes to a zap logger, [Recorder] keeps messages in memory.
//   - [Dispatcher] is a buffered async relay in front of a Sender. It
//     satisfies bankAuth.Notifier, so engine calls never wait on SMTP.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Subject and body text are
// composed by the engine.
//
// # What this package must NOT do
//
//   - Import bankAuth.
//   - Retry failed deliveries; a failure is logged and dropped.
package notify
