package symbols

// bodyStart finds the '{' that opens the body of a declaration whose name ends at
// byte offset from. Parenthesized parameter lists are skipped. It returns -1 when a
// ';' or '}' comes first at the outer level, or when a line ends at the outer level
// and the next line does not start with '{'.
func bodyStart(src string, from int) int {
	depth := 0
	for i := from; i < len(src); i++ {
		switch c := src[i]; c {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '{':
			if depth == 0 {
				return i
			}
			// object pattern inside a parameter list
			if j := matchBrace(src, i); j >= 0 {
				i = j
			} else {
				return -1
			}
		case ';', '}':
			if depth == 0 {
				return -1
			}
		case '\n':
			if depth == 0 && nextNonSpace(src, i+1) != '{' {
				return -1
			}
		case '\'', '"':
			i = skipQuoted(src, i)
		case '`':
			i = skipTemplate(src, i)
		case '/':
			i = skipComment(src, i)
		}
		if i < 0 {
			return -1
		}
	}
	return -1
}

// matchBrace returns the offset of the '}' matching the '{' at open, or -1.
// String, template and comment text is skipped.
func matchBrace(src string, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"':
			i = skipQuoted(src, i)
		case '`':
			i = skipTemplate(src, i)
		case '/':
			i = skipComment(src, i)
		}
		if i < 0 {
			return -1
		}
	}
	return -1
}

// skipQuoted returns the offset of the closing quote for the string at i. An
// unterminated string ends at the end of its line.
func skipQuoted(src string, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			return j
		}
	}
	return len(src) - 1
}

// skipTemplate returns the offset of the closing backtick for the template literal
// at i, descending into ${...} substitutions. It returns -1 if unterminated.
func skipTemplate(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '`':
			return j
		case '$':
			if j+1 < len(src) && src[j+1] == '{' {
				end := matchBrace(src, j+1)
				if end < 0 {
					return -1
				}
				j = end
			}
		}
	}
	return -1
}

// skipComment returns the last offset of a // or /* */ comment starting at i, or
// i itself when the slash does not start a comment.
func skipComment(src string, i int) int {
	if i+1 >= len(src) {
		return i
	}
	switch src[i+1] {
	case '/':
		for j := i + 2; j < len(src); j++ {
			if src[j] == '\n' {
				return j - 1
			}
		}
		return len(src) - 1
	case '*':
		for j := i + 2; j+1 < len(src); j++ {
			if src[j] == '*' && src[j+1] == '/' {
				return j + 1
			}
		}
		return -1
	}
	return i
}

func nextNonSpace(src string, i int) byte {
	for ; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return src[i]
	}
	return 0
}
