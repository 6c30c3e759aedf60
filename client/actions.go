package client

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	ActionExec = "exec"
	ActionList = "ls"
	ActionCat  = "cat"
)

// ErrUnknownAction is returned for arguments not in the form verb=argument
var ErrUnknownAction = errors.New("unknown action")

// Action is one post connection step requested on the command line
type Action struct {
	Verb     string
	Argument string
}

func (a Action) String() string {
	return fmt.Sprintf("%s=%s", a.Verb, a.Argument)
}

// ParseActions turns exec=, ls= and cat= arguments into Actions, keeping
// their order. Everything after the first '=' is the argument, so
// exec=FOO=bar env runs "FOO=bar env".
func ParseActions(args []string) ([]Action, error) {
	actions := make([]Action, 0, len(args))
	for _, arg := range args {
		verb, argument, found := strings.Cut(arg, "=")
		if !found {
			return nil, errors.Wrapf(ErrUnknownAction, "%q", arg)
		}
		switch verb {
		case ActionExec, ActionList, ActionCat:
		default:
			return nil, errors.Wrapf(ErrUnknownAction, "%q", arg)
		}
		if argument == "" && verb != ActionList {
			return nil, errors.Errorf("action %q requires an argument", verb)
		}
		actions = append(actions, Action{Verb: verb, Argument: argument})
	}
	return actions, nil
}
