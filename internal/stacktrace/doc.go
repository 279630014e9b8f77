// Package stacktrace normalizes raw stack traces from several runtimes into
// structured frames and resolves application frames to files in a workspace.
//
// A trace is assigned a single Dialect by structural signature. Each line is
// parsed with that dialect's grammar; lines that do not parse are skipped.
// Frames under dependency trees or runtime install locations are marked
// internal and left unresolved. Remaining frames are mapped onto the
// workspace root directly, as an absolute path beneath the root, or through an
// ordered table of environment prefix rules. The resolver never searches the
// filesystem: an unmatched path stays unresolved.
package stacktrace
