// Package shell builds POSIX shell command strings for remote execution.
//
// Every argument passed through [Command] is quoted with [Quote], so the
// resulting string can be handed verbatim to a remote shell without any
// word splitting, globbing, or substitution of the arguments. Callers that
// need shell operators (pipes, &&, conditionals) use [Script], which wraps a
// pre-built script without re-quoting it.
package shell

import "strings"

// Quote returns s as a single-quoted shell word.
//
// Embedded single quotes are replaced by '"'"' (close quote, double-quoted
// quote, reopen quote). The empty string becomes ''.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Join quotes each argument and joins them with single spaces.
func Join(argv ...string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}

// options holds the optional wrapping applied around a command.
type options struct {
	dir        string
	redirectTo string
}

// Option configures how a command is wrapped.
type Option func(*options)

// InDirectory runs the command with dir as its working directory.
func InDirectory(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// RedirectTo sends the command's standard output to path.
func RedirectTo(path string) Option {
	return func(o *options) {
		o.redirectTo = path
	}
}

// Command quotes argv into a single command line and applies opts.
func Command(argv []string, opts ...Option) string {
	return Script(Join(argv...), opts...)
}

// Script applies opts to a pre-built script. The script itself is not quoted.
//
// The redirect is applied before the directory change, so only the script's
// own output is captured and the redirect target is resolved relative to dir.
func Script(script string, opts ...Option) string {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.redirectTo != "" {
		script = "(" + script + ") > " + Quote(o.redirectTo)
	}
	if o.dir != "" {
		script = "cd " + Quote(o.dir) + " && " + script
	}
	return script
}
