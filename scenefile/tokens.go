package scenefile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type token struct {
	text string
	line int
}

// tokenize splits r into whitespace separated tokens, dropping everything from
// '#' to the end of a line.
func tokenize(r io.Reader) ([]token, error) {
	var toks []token

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i != -1 {
			text = text[:i]
		}
		for _, f := range strings.Fields(text) {
			toks = append(toks, token{text: f, line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("while scanning: %w", err)
	}
	return toks, nil
}

// tokenStream hands out tokens and remembers where it is for error messages.
type tokenStream struct {
	file string
	toks []token
	pos  int
}

func (ts *tokenStream) done() bool {
	return ts.pos >= len(ts.toks)
}

func (ts *tokenStream) line() int {
	switch {
	case ts.pos < len(ts.toks):
		return ts.toks[ts.pos].line
	case len(ts.toks) > 0:
		return ts.toks[len(ts.toks)-1].line
	}
	return 0
}

func (ts *tokenStream) errorf(inner error, format string, args ...interface{}) *ParseError {
	return newParseError(ts.file, ts.line(), fmt.Sprintf(format, args...), inner)
}

func (ts *tokenStream) next(what string) (string, error) {
	if ts.done() {
		return "", ts.errorf(nil, "unexpected end of file reading %s", what)
	}
	t := ts.toks[ts.pos].text
	ts.pos++
	return t, nil
}

func (ts *tokenStream) float(what string) (float64, error) {
	t, err := ts.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		ts.pos--
		return 0, ts.errorf(err, "bad number for %s", what)
	}
	return v, nil
}

func (ts *tokenStream) floats(what string, out []float64) error {
	for i := range out {
		v, err := ts.float(what)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func (ts *tokenStream) int(what string) (int, error) {
	t, err := ts.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(t)
	if err != nil {
		ts.pos--
		return 0, ts.errorf(err, "bad integer for %s", what)
	}
	return v, nil
}
