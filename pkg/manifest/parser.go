// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package manifest

import (
	"strings"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

const projectCommand = "project"

type token struct {
	value  string
	quoted bool
}

type commandCall struct {
	line int
	args []token
}

// scanner walks comment-free manifest text as a sequence of
// "identifier ( arguments )" command invocations.
type scanner struct {
	src  string
	pos  int
	line int
}

// findProjectCalls returns every project() invocation at command level.
// Command names compare case-insensitively, as in CMake.
func findProjectCalls(src string) ([]commandCall, error) {
	s := &scanner{src: src, line: 1}
	var calls []commandCall

	for {
		s.skipSpace(true)
		if s.eof() {
			return calls, nil
		}

		name := s.identifier()
		if name == "" {
			// not a command start; the manifest's own syntax is not ours to judge
			s.skipLine()
			continue
		}

		line := s.line
		s.skipSpace(false)
		if s.eof() || s.peek() != '(' {
			s.skipLine()
			continue
		}
		s.pos++

		args, err := s.arguments()
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeIdentityExtraction,
				"unterminated command invocation", err, map[string]any{"command": name, "line": line})
		}
		if strings.EqualFold(name, projectCommand) {
			calls = append(calls, commandCall{line: line, args: args})
		}
	}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) advance() byte {
	ch := s.src[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
	}
	return ch
}

func (s *scanner) skipSpace(newlines bool) {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			if !newlines {
				return
			}
			s.advance()
		default:
			return
		}
	}
}

func (s *scanner) skipLine() {
	for !s.eof() && s.advance() != '\n' {
	}
}

func (s *scanner) identifier() string {
	start := s.pos
	for !s.eof() {
		ch := s.peek()
		isAlpha := ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
		isDigit := ch >= '0' && ch <= '9'
		if !isAlpha && !(isDigit && s.pos > start) {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos]
}

// arguments reads up to the ')' matching an already consumed '('.
func (s *scanner) arguments() ([]token, error) {
	var (
		args  []token
		cur   strings.Builder
		depth = 1
	)
	flush := func() {
		if cur.Len() > 0 {
			args = append(args, token{value: cur.String()})
			cur.Reset()
		}
	}

	for !s.eof() {
		ch := s.advance()
		switch ch {
		case ' ', '\t', '\r', '\n':
			flush()
		case '(':
			flush()
			depth++
		case ')':
			flush()
			depth--
			if depth == 0 {
				return args, nil
			}
		case '"':
			flush()
			value, err := s.quoted()
			if err != nil {
				return nil, err
			}
			args = append(args, token{value: value, quoted: true})
		case '\\':
			cur.WriteByte(ch)
			if !s.eof() {
				cur.WriteByte(s.advance())
			}
		default:
			cur.WriteByte(ch)
		}
	}
	return nil, errUnterminated("argument list")
}

// quoted reads a double-quoted argument after its opening quote.
func (s *scanner) quoted() (string, error) {
	var b strings.Builder
	for !s.eof() {
		ch := s.advance()
		switch ch {
		case '"':
			return b.String(), nil
		case '\\':
			if s.eof() {
				return "", errUnterminated("quoted argument")
			}
			next := s.advance()
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\n':
				// line continuation
			default:
				b.WriteByte(next)
			}
		default:
			b.WriteByte(ch)
		}
	}
	return "", errUnterminated("quoted argument")
}

type errUnterminated string

func (e errUnterminated) Error() string {
	return "unterminated " + string(e)
}
