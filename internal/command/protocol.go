// Package command implements the textual command grammar exchanged
// between the uftp client and server: ls, exit, get <name>, put <name>,
// and delete <name>.
package command

import (
	"errors"
	"strings"
)

// Kind identifies which command a parsed Command represents.
type Kind int

const (
	Ls Kind = iota
	Exit
	Get
	Put
	Delete
)

func (k Kind) String() string {
	switch k {
	case Ls:
		return "ls"
	case Exit:
		return "exit"
	case Get:
		return "get"
	case Put:
		return "put"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// delimiters are the token-separator characters recognized when parsing a
// command line.
const delimiters = " \n\t\r\v\f"

// ErrParse is returned by Parse when raw is not a recognized command.
var ErrParse = errors.New("command: parse error")

// Command is a parsed client request.
type Command struct {
	Kind Kind
	Arg  string // filename, for Get/Put/Delete
	Raw  string // the original, unparsed command text
}

// Parse tokenizes raw on delimiters and validates it against the command
// grammar, returning ErrParse for anything that does not match.
func Parse(raw string) (Command, error) {
	tokens := strings.FieldsFunc(raw, isDelimiter)
	if len(tokens) == 0 {
		return Command{}, ErrParse
	}

	first := tokens[0]

	switch first {
	case "ls":
		if len(tokens) != 1 {
			return Command{}, ErrParse
		}
		return Command{Kind: Ls, Raw: raw}, nil
	case "exit":
		if len(tokens) != 1 {
			return Command{}, ErrParse
		}
		return Command{Kind: Exit, Raw: raw}, nil
	case "get", "put", "delete":
		if len(tokens) != 2 {
			return Command{}, ErrParse
		}

		kind := Get
		switch first {
		case "put":
			kind = Put
		case "delete":
			kind = Delete
		}

		return Command{Kind: kind, Arg: tokens[1], Raw: raw}, nil
	default:
		return Command{}, ErrParse
	}
}

func isDelimiter(r rune) bool {
	return strings.ContainsRune(delimiters, r)
}
