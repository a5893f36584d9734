// Package presence tracks counterpart availability and typing state, and
// debounces the local user's typing notifications.
//
// Tracker holds PresenceState per conversation key. Remote typing expires on
// its own after a quiet window, so a lost typing_stop never leaves a
// conversation stuck in "typing…". State is created by Subscribe (or by the
// first live event for a key) and destroyed by Unsubscribe or Reset.
//
// TypingNotifier turns a burst of keystrokes into a single start signal and
// emits stop once no input arrived for the window.
//
// Poller is the best-effort fallback used while no live push channel is
// connected: it polls presence for subscribed keys, throttled by a shared
// rate limiter.
package presence
