// Package notify delivers the rendered report.
//
// Two notifiers implement Notifier:
//   - Stdout prints the message, used for dry runs
//   - Zulip posts it once to /api/v1/messages of a Zulip site
//
// Zulip authenticates with HTTP basic auth (bot email and API key) and sends
// a form with type, to, topic and content. Stream messages need a topic;
// direct messages are sent without one. A transport failure, a non-2xx
// status or a {"result":"error"} body is returned as *DeliveryError and is
// never retried.
package notify
