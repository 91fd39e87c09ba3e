package pipeline

import (
	"errors"
	"strconv"
	"strings"
)

// ErrHelp is returned by Parse when -h or --help appears among the options.
var ErrHelp = errors.New("help requested")

// Parse takes pre-tokenized args (as delivered by the shell) and builds a Spec.
//
// Bare tokens go to the main command until the first --pipe. Each --pipe
// opens a new stage that collects the bare tokens after it. A value-taking
// option (--stdout, --stdin, --env-file) hands subsequent bare tokens back
// to the main command. Everything after -- is appended to the main command.
func Parse(args []string) (*Spec, error) {
	s := &Spec{Stages: []Command{nil}}
	cur := 0 // stage receiving bare tokens

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == OptEnd {
			s.Stages[0] = append(s.Stages[0], args[i+1:]...)
			break
		}
		if !isOption(arg) {
			s.Stages[cur] = append(s.Stages[cur], arg)
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "-h", "--help":
			return nil, ErrHelp
		case OptPipe:
			s.Stages = append(s.Stages, nil)
			cur = len(s.Stages) - 1
			if hasValue {
				s.Stages[cur] = append(s.Stages[cur], value)
			}
		case OptStdout, OptStdin, OptEnvFile:
			if !hasValue {
				if i+1 >= len(args) {
					return nil, configErrorf("%s requires a file path", name)
				}
				i++
				value = args[i]
			}
			if value == "" {
				return nil, configErrorf("%s requires a file path", name)
			}
			switch name {
			case OptStdout:
				if s.Stdout != "" {
					return nil, configErrorf("multiple %s redirects", OptStdout)
				}
				s.Stdout = value
			case OptStdin:
				if s.Stdin != "" {
					return nil, configErrorf("multiple %s redirects", OptStdin)
				}
				s.Stdin = value
			default:
				s.EnvFiles = append(s.EnvFiles, value)
			}
			cur = 0
		default:
			return nil, configErrorf("unrecognized option %q (write it as %q to pass it to a stage)",
				arg, OptMarker+strings.TrimPrefix(arg, "-"))
		}
	}

	if len(s.Stages[0]) == 0 {
		return nil, configErrorf("missing command")
	}
	for i, c := range s.Stages[1:] {
		if len(c) == 0 {
			return nil, configErrorf("%s %d: empty command", OptPipe, i+1)
		}
	}
	return s, nil
}

// isOption reports whether tok looks like an option. A lone "-" and
// negative numbers are plain tokens.
func isOption(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}
