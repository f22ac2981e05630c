// Package reply extracts confirmation commands from the text of an admin's
// email reply.
package reply

import "strings"

// Action is what an admin asks to happen to a pending order.
type Action string

const (
	ActionConfirm Action = "CONFIRM"
	ActionReject  Action = "REJECT"
)

// Command is a parsed confirmation command.
type Command struct {
	Action        Action
	TransactionID string
}

// Outcome tags the kind of Result.
type Outcome int

const (
	// OutcomeNone means the text contains no command line.
	OutcomeNone Outcome = iota
	// OutcomeCommand means a complete command was found.
	OutcomeCommand
	// OutcomeMalformed means a command line was found without a transaction id.
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommand:
		return "command"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "none"
	}
}

// Result is the outcome of Parse. Command is set only for OutcomeCommand,
// Line only for OutcomeCommand and OutcomeMalformed.
type Result struct {
	Outcome Outcome
	Command Command
	Line    string
}

// Parse scans text line by line and returns the first command it finds.
//
// A command line is a line whose first whitespace-separated token is exactly
// CONFIRM or REJECT. The second token is the transaction id and anything after
// it is ignored. Quoted lines ("> CONFIRM ...") never count since their first
// token is ">". Later lines are ignored once a command line is found.
func Parse(text string) Result {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		action := Action(fields[0])
		if action != ActionConfirm && action != ActionReject {
			continue
		}
		if len(fields) < 2 {
			return Result{Outcome: OutcomeMalformed, Line: line}
		}
		return Result{
			Outcome: OutcomeCommand,
			Command: Command{Action: action, TransactionID: fields[1]},
			Line:    line,
		}
	}
	return Result{Outcome: OutcomeNone}
}
