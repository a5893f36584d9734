// Package cli provides the interactive dialer command-line client.
//
// It wires configuration, the local cache, API services, and an interactive
// REPL. Typical flow: restore or prompt for a session, start the chat session
// and a background connectivity watcher, and execute user commands. Incoming
// messages and notices are printed as they arrive.
//
// Commands:
//   - list                         conversations, most recent first
//   - open <number>                focus a conversation and print its history
//   - send <text> | send media=<url> [text]
//   - type                         send a typing indicator to the open conversation
//   - who [number]                 presence of a counterpart
//   - delete <id>                  hide a message on this device
//   - unsend <id>                  delete a sent message for everyone
//   - refresh                      reload conversations from the server
//   - start <number> [name]        open an empty conversation
//   - logout | exit
package cli
