package bot

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"leekbot/internal/model"
)

const maxCommandLength = 12

var commandNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Command is a parsed chat command: the name token and the remaining
// whitespace-separated arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a message into a command and its arguments. The message
// must start with callToken; anything else returns ok=false and is ignored by
// the caller.
func ParseCommand(text string, callToken rune) (Command, bool) {
	r, size := utf8.DecodeRuneInString(text)
	if r != callToken || r == utf8.RuneError {
		return Command{}, false
	}

	tokens := strings.Fields(text[size:])
	if len(tokens) == 0 {
		return Command{}, false
	}
	return Command{Name: tokens[0], Args: tokens[1:]}, true
}

// IsWellFormedCommand reports whether a command name looks like an identifier
// of sane length. Well-formed unknown names get a "no such command" reply;
// everything else is a syntax error.
func IsWellFormedCommand(name string) bool {
	return len(name) <= maxCommandLength && commandNameRe.MatchString(name)
}

// ParsePrefChanges parses a comma-separated list of key=value pairs. Pairs
// are returned in order for left-to-right application. On a malformed pair
// the valid prefix parsed so far is returned along with the error, so the
// caller can still apply the earlier entries.
func ParsePrefChanges(raw string) ([]model.PrefChange, error) {
	var changes []model.PrefChange
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" || value == "" {
			return changes, fmt.Errorf("malformed preference %q, expected key=value", pair)
		}
		changes = append(changes, model.PrefChange{Key: key, Value: value})
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("no preference changes given")
	}
	return changes, nil
}
