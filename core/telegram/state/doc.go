// Package state keeps per-user conversation sessions for Telegram bots.
// A Store is an explicitly owned container: callers create one, hand it to
// the components that drive conversations, and keep it for the process lifetime.
package state
