package script

import (
	"strings"
	"unicode"
)

// fence is the prefix of a block marker line. Anything after it on the same
// line (an info string such as ```screencast) is ignored.
const fence = "```"

// Interpret scans document and returns its directives in document order.
// It never fails: unrecognized lines are skipped and payload problems are
// left for dispatch (see Sleep.Duration and Lint).
//
// With autopause set, a Pause{Auto: true} is emitted ahead of the first
// non-blank line of every block. An unterminated block is closed by the end
// of the document.
func Interpret(document string, autopause bool) []Directive {
	var (
		out         []Directive
		insideBlock bool
		justEntered bool
	)

	for i, line := range strings.Split(document, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, fence) {
			insideBlock = !insideBlock
			justEntered = insideBlock
			continue
		}
		if !insideBlock || trimmed == "" {
			continue
		}

		if justEntered {
			justEntered = false
			if autopause {
				out = append(out, Pause{Auto: true, LineNo: lineNo})
			}
		}

		if d, ok := parseLine(trimmed, lineNo); ok {
			out = append(out, d)
		}
	}
	return out
}

// parseLine maps one trimmed block line onto a directive. The first
// whitespace-delimited token selects the variant.
func parseLine(line string, lineNo int) (Directive, bool) {
	token, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		token, rest = line[:i], strings.TrimSpace(line[i:])
	}

	switch token {
	case "command":
		return Command{Text: rest, LineNo: lineNo}, true
	case "key":
		return Key{Names: strings.Fields(rest), LineNo: lineNo}, true
	case "sleep":
		return Sleep{Raw: rest, LineNo: lineNo}, true
	case "pause":
		return Pause{LineNo: lineNo}, true
	case "toggle":
		return Toggle{LineNo: lineNo}, true
	}
	return nil, false
}

// Lint returns the payload errors dispatch would hit, in document order.
func Lint(directives []Directive) []error {
	var errs []error
	for _, d := range directives {
		if s, ok := d.(Sleep); ok {
			if _, err := s.Duration(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}
