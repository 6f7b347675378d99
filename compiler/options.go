package compiler

import "log"

const (
	DefaultProgram    = "Program"
	DefaultStackLimit = 32
)

// Options configures a compilation.
type Options struct {
	// Program names the generated class and qualifies global accesses.
	Program string
	// StackLimit is written as the .limit stack of every method.
	StackLimit int
	// NoEntryPoint suppresses the main([Ljava/lang/String;)V wrapper.
	NoEntryPoint bool
	// Logger receives a trace of both passes when set.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Program == "" {
		o.Program = DefaultProgram
	}
	if o.StackLimit <= 0 {
		o.StackLimit = DefaultStackLimit
	}
	return o
}

func (o Options) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
