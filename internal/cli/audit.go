package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/marcelocantos/invoke/internal/audit"
)

const defaultTail = 20

// RunAudit handles invoke --audit <verify|tail|show> [N].
func RunAudit(w io.Writer, logPath string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(w, "usage: invoke --audit <verify|tail|show> [N]")
		return 2
	}

	switch args[0] {
	case "verify":
		n, err := audit.Verify(logPath)
		if err != nil {
			fmt.Fprintf(w, "run log verification FAILED after %d entries: %v\n", n, err)
			return 1
		}
		fmt.Fprintf(w, "run log integrity verified (%d entries)\n", n)
		return 0

	case "tail", "show":
		n := defaultTail
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v < 0 {
				fmt.Fprintf(w, "invoke audit: invalid count %q\n", args[1])
				return 2
			}
			n = v
		}
		entries, err := audit.Tail(logPath, n)
		if err != nil {
			fmt.Fprintf(w, "invoke audit: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no runs recorded")
			return 0
		}
		for _, e := range entries {
			if args[0] == "show" {
				data, _ := json.MarshalIndent(e, "", "  ")
				fmt.Fprintf(w, "%s\n", data)
				continue
			}
			fmt.Fprintln(w, formatEntry(e))
		}
		return 0

	default:
		fmt.Fprintf(w, "invoke audit: unknown subcommand %q\n", args[0])
		return 2
	}
}

func formatEntry(e audit.Entry) string {
	stages := make([]string, len(e.Stages))
	for i, s := range e.Stages {
		stages[i] = strings.Join(s, " ")
	}
	line := fmt.Sprintf("%d %s exit=%d %s", e.Seq, e.Time.Format(time.RFC3339), e.ExitCode, strings.Join(stages, " | "))
	if e.Stdin != "" {
		line += " < " + e.Stdin
	}
	if e.Stdout != "" {
		line += " > " + e.Stdout
	}
	if e.Error != "" {
		line += " (" + e.Error + ")"
	}
	return line
}
