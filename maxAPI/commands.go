package maxAPI

import (
	"errors"
	"strconv"
	"strings"
)

var errLoginUsage = errors.New("usage: /login <email> <password>")

type command struct {
	name string
	args string
}

// parseCommand splits "/name args" and ignores a "@botname" suffix on the
// name. Text that is not a command yields false.
func parseCommand(text string) (command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return command{}, false
	}

	name, args, _ := strings.Cut(text[1:], " ")
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return command{}, false
	}
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}, true
}

// parseLogin reads "<email> <password>". The password is the rest of the
// line, so it may contain spaces.
func parseLogin(args string) (string, string, error) {
	email, password, ok := strings.Cut(strings.TrimSpace(args), " ")
	password = strings.TrimSpace(password)
	if !ok || email == "" || password == "" {
		return "", "", errLoginUsage
	}
	return email, password, nil
}

// payloadIDs parses the numeric fields of a callback payload such as
// "ev_val_3_7_1" after its prefix "ev_val_". want is the number of fields
// expected.
func payloadIDs(payload, prefix string, want int) ([]int64, bool) {
	rest, ok := strings.CutPrefix(payload, prefix)
	if !ok {
		return nil, false
	}
	parts := strings.Split(rest, "_")
	if len(parts) != want {
		return nil, false
	}

	ids := make([]int64, len(parts))
	for i, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}
