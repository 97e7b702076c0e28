package commands

// ClientContextKey stores the daemon client in the command context. The main
// entry point and all command handlers must use this same key.
var ClientContextKey = &struct{}{}
