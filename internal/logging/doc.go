// Package logging provides structured slog logging for rspecgen.
//
// Commands log JSON lines to ~/.rspecgen/logs/rspecgen.log through a
// size-rotating writer. With --debug the level drops to debug and lines are
// mirrored to stderr. The serve command never writes logs to stdout or
// stderr because stdout carries JSON-RPC.
package logging
