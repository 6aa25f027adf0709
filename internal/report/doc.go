// Package report runs the cost report once.
//
// The Pipeline is a linear state machine:
//
//	Init -> ConfigLoaded -> SessionEstablished -> UsageCollected -> MessageRendered -> Delivered | Printed
//
// Any failure stops the run and is returned as a *StageError naming the
// state that could not be reached; errors.As still finds the underlying
// config.ConfigError, provider.UpstreamError, message.TemplateError or
// notify.DeliveryError. In dry-run mode the message is printed to stdout and
// no chat client is ever built. When a Pushgateway is configured the
// snapshot is pushed after the terminal state; a push failure is logged as a
// warning and does not fail the run.
package report
