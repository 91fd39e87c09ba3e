package cli

const usage = `invoke runs a chain of commands connected by pipes, without a shell.

usage:
  invoke [options] <command> [args...] [--pipe <command> [args...]]...
  invoke --audit <verify|tail|show> [N]
  invoke --help
  invoke --version

options:
  --stdout <file>     write the last command's output to file (created or truncated)
  --stdin <file>      read the first command's input from file
  --env-file <file>   add variables from a dotenv file to every command (repeatable)
  --pipe <cmd> ...    pipe the previous command's output into cmd (repeatable)
  --                  pass every following token to the first command verbatim

Every %OPT% in any token is replaced by '-' before the command starts, so
option-like arguments can be written as %OPT%r or %OPT%%OPT%long.

The exit status is the last command's, unless propagate_exit is false in
~/.config/invoke/config.yaml (or $INVOKE_CONFIG).
`
