// Package shellparse splits user-supplied argument strings into argument
// vectors using shell-like quoting.
//
// Backslashes only escape quotes, whitespace and other backslashes, so
// Windows paths such as C:\Tools\pwsh.exe survive unquoted.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote is returned when a quoted string is not properly closed
	ErrUnclosedQuote = errors.New("unclosed quote in argument string")

	// ErrTrailingEscape is returned when a backslash appears at the end of input
	ErrTrailingEscape = errors.New("trailing escape character at end of arguments")
)

type quoteState int

const (
	unquoted quoteState = iota
	singleQuoted
	doubleQuoted
)

// Split parses an argument string.
//
//	Split(`-LogLevel Diagnostic`)          => ["-LogLevel", "Diagnostic"]
//	Split(`-LogPath "C:\My Logs\pses.log"`) => ["-LogPath", `C:\My Logs\pses.log`]
//	Split(`-HostName 'my editor'`)          => ["-HostName", "my editor"]
//	Split(`-FeatureFlags ''`)               => ["-FeatureFlags", ""]
func Split(input string) ([]string, error) {
	args := []string{}
	var word strings.Builder
	inWord := false
	state := unquoted

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case singleQuoted:
			if ch == '\'' {
				state = unquoted
			} else {
				word.WriteRune(ch)
			}
			continue

		case doubleQuoted:
			switch {
			case ch == '"':
				state = unquoted
			case ch == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\'):
				i++
				word.WriteRune(runes[i])
			default:
				word.WriteRune(ch)
			}
			continue
		}

		switch {
		case unicode.IsSpace(ch):
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}
		case ch == '\'':
			state = singleQuoted
			inWord = true
		case ch == '"':
			state = doubleQuoted
			inWord = true
		case ch == '\\':
			if i+1 >= len(runes) {
				return nil, ErrTrailingEscape
			}
			next := runes[i+1]
			if next == '\'' || next == '"' || next == '\\' || unicode.IsSpace(next) {
				i++
				word.WriteRune(next)
			} else {
				word.WriteRune(ch)
			}
			inWord = true
		default:
			word.WriteRune(ch)
			inWord = true
		}
	}

	switch state {
	case singleQuoted:
		return nil, fmt.Errorf("%w: unclosed single quote", ErrUnclosedQuote)
	case doubleQuoted:
		return nil, fmt.Errorf("%w: unclosed double quote", ErrUnclosedQuote)
	}

	if inWord {
		args = append(args, word.String())
	}
	return args, nil
}

// Join renders args as a single string that Split turns back into args.
// It is used for logging command lines.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = quote(arg)
	}
	return strings.Join(quoted, " ")
}

func quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\'' || r == '"' || r == '\\'
	}) {
		return arg
	}
	if !strings.Contains(arg, "'") {
		return "'" + arg + "'"
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
