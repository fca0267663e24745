// Package notify delivers operator notifications.
//
// Monitors never talk to a transport directly: they hand messages to a
// Dispatcher, whose Enqueue never blocks. A single worker delivers queued
// messages through a Notifier (a local program such as mail(1), SMTP, MQTT,
// the log, or several of them through Multi). Failed deliveries are logged
// and counted, never retried.
package notify
