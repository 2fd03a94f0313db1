// Package state provides a lightweight FSM/session store for Telegram bots.
// It holds volatile, process-local conversation state keyed by user id and
// is intentionally domain-agnostic so it can be reused across bots. State
// is lost on restart; callers that need durability must supply their own
// Manager implementation behind the same contract.
package state
