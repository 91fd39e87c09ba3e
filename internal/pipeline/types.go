package pipeline

import "strings"

// Option names recognised on the command line.
const (
	OptStdout  = "--stdout"
	OptStdin   = "--stdin"
	OptPipe    = "--pipe"
	OptEnvFile = "--env-file"
	OptEnd     = "--"
)

// OptMarker is replaced by "-" in every token before a stage starts. It lets
// callers pass option-like tokens through layers that would otherwise treat
// a leading hyphen specially.
const OptMarker = "%OPT%"

// ExpandOpt replaces every OptMarker in token with a single hyphen.
func ExpandOpt(token string) string {
	return strings.ReplaceAll(token, OptMarker, "-")
}

// Command is one stage: a program name followed by its arguments.
type Command []string

// Expand returns a copy of c with ExpandOpt applied to every token.
func (c Command) Expand() Command {
	out := make(Command, len(c))
	for i, tok := range c {
		out[i] = ExpandOpt(tok)
	}
	return out
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Spec is a parsed pipeline: the main command followed by each --pipe stage
// in the order given, plus optional redirects.
type Spec struct {
	Stages   []Command
	Stdout   string   // output file for the last stage, empty to inherit
	Stdin    string   // input file for the first stage, empty to inherit
	EnvFiles []string // dotenv files merged into every stage's environment
}

// Validate checks the invariants Launch relies on.
func (s *Spec) Validate() error {
	if s == nil || len(s.Stages) == 0 || len(s.Stages[0]) == 0 {
		return configErrorf("missing command")
	}
	for i, c := range s.Stages {
		if len(c) == 0 {
			return configErrorf("stage %d: empty command", i)
		}
	}
	return nil
}
