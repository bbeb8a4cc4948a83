// Package dispatch routes rendered notifications to channel providers and
// classifies delivery failures.
//
// A Dispatcher holds one ChannelSender per channel. Dispatch hands the
// delivery to the matching sender under a timeout and reports the outcome
// as a Result: delivered, retryable failure, or terminal failure. The
// classification is the contract with the retry loop upstream: retryable
// failures earn another attempt after a backoff, terminal failures do not.
//
// Two senders ship with the package: EmailSender (Postmark) and InAppSender
// (in-process fan-out to live subscribers). Push and SMS providers plug in
// through the same ChannelSender interface; FuncSender adapts plain
// functions for tests and simple integrations.
package dispatch
