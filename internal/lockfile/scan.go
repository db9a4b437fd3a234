package lockfile

// bracketScanner counts structural brackets line by line. It carries
// multi-line string state across lines, so a `[` or `]` inside a """ or '''
// string never moves the depth.
type bracketScanner struct {
	// multiline holds the open delimiter (`"""` or `'''`) of a multi-line
	// string that spans the line boundary, or "" when none is open.
	multiline string
}

// InString reports whether the scanner is inside a multi-line string at the
// current line boundary.
func (s *bracketScanner) InString() bool {
	return s.multiline != ""
}

// Delta returns the number of opening minus closing brackets on line.
func (s *bracketScanner) Delta(line string) int {
	open, closed := s.Scan(line)

	return open - closed
}

// Scan counts the opening and closing brackets on line that are outside
// strings and comments.
func (s *bracketScanner) Scan(line string) (open, closed int) {
	for i := 0; i < len(line); i++ {
		if s.multiline != "" {
			if hasPrefixAt(line, i, s.multiline) && !escaped(line, i, s.multiline) {
				i += len(s.multiline) - 1
				s.multiline = ""
			}

			continue
		}

		switch c := line[i]; c {
		case '#':
			return open, closed
		case '[':
			open++
		case ']':
			closed++
		case '"', '\'':
			triple := string([]byte{c, c, c})
			if hasPrefixAt(line, i, triple) {
				s.multiline = triple
				i += 2

				continue
			}

			i = skipString(line, i)
		}
	}

	return open, closed
}

// skipString returns the index of the closing quote of the single-line
// string starting at start, or the last index when it is unterminated.
func skipString(line string, start int) int {
	quote := line[start]

	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if quote == '"' {
				i++
			}
		case quote:
			return i
		}
	}

	return len(line) - 1
}

func hasPrefixAt(s string, i int, prefix string) bool {
	return len(s)-i >= len(prefix) && s[i:i+len(prefix)] == prefix
}

// escaped reports whether the delimiter at i is preceded by an odd number of
// backslashes. Literal strings have no escapes.
func escaped(s string, i int, delim string) bool {
	if delim == "'''" {
		return false
	}

	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}

	return n%2 == 1
}

// countBrackets returns the structural bracket counts of a whole document.
func countBrackets(doc string) (open, closed int) {
	var s bracketScanner

	for _, line := range splitDocument(doc) {
		o, c := s.Scan(line)
		open += o
		closed += c
	}

	return open, closed
}
