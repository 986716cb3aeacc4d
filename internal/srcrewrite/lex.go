// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"bytes"
	"slices"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	blockCommentToken
	lineCommentToken
	singleQuotedToken
	doubleQuotedToken
	templateToken
	regexToken
	identToken
	numberToken
	punctToken
	anyToken
)

var (
	whitespaceMatcher    = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
	blockCommentMatcher  = parsly.NewToken(blockCommentToken, "BlockComment", matcher.NewSeqBlock("/*", "*/"))
	lineCommentMatcher   = parsly.NewToken(lineCommentToken, "LineComment", &lineCommentMatch{})
	singleQuotedMatcher  = parsly.NewToken(singleQuotedToken, "SingleQuote", matcher.NewBlock('\'', '\'', '\\'))
	doubleQuotedMatcher  = parsly.NewToken(doubleQuotedToken, "DoubleQuote", matcher.NewBlock('"', '"', '\\'))
	templateMatcher      = parsly.NewToken(templateToken, "Template", &templateMatch{})
	regexMatcher         = parsly.NewToken(regexToken, "Regex", &regexMatch{})
	identMatcher         = parsly.NewToken(identToken, "Identifier", &identMatch{})
	numberMatcher        = parsly.NewToken(numberToken, "Number", &numberMatch{})
	punctMatcher         = parsly.NewToken(punctToken, "Punctuator", &punctMatch{})
	anyMatcher           = parsly.NewToken(anyToken, "Any", &anyMatch{})
	matchersWithRegex    = []*parsly.Token{blockCommentMatcher, lineCommentMatcher, singleQuotedMatcher, doubleQuotedMatcher, templateMatcher, regexMatcher, identMatcher, numberMatcher, punctMatcher, anyMatcher}
	matchersWithoutRegex = []*parsly.Token{blockCommentMatcher, lineCommentMatcher, singleQuotedMatcher, doubleQuotedMatcher, templateMatcher, identMatcher, numberMatcher, punctMatcher, anyMatcher}
)

// Keywords after which a slash starts a regular expression literal.
var regexPrefixKeywords = []string{
	"return", "typeof", "instanceof", "in", "of", "new", "delete", "void",
	"throw", "case", "do", "else", "yield", "await",
}

// Punctuators, longest first.
var punctuators = []string{
	">>>=", "...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
}

type (
	tokenKind int

	token struct {
		kind tokenKind
		// start and end are byte offsets into the source.
		start, end int
		// depth is the bracket nesting level the token sits at. Opening and
		// closing brackets carry the level outside them.
		depth int
		// newline reports a line terminator between the previous token and
		// this one (comments included).
		newline bool
	}
)

const (
	kindIdent tokenKind = iota
	kindString
	kindTemplate
	kindRegex
	kindNumber
	kindPunct
)

func (t token) text(src []byte) string { return string(src[t.start:t.end]) }

func (t token) is(src []byte, s string) bool {
	return t.end-t.start == len(s) && string(src[t.start:t.end]) == s
}

// tokenize splits src into significant tokens. Comments and whitespace are
// dropped but remembered through token.newline.
func tokenize(src []byte) []token {
	cursor := parsly.NewCursor("", src, 0)
	var (
		tokens  []token
		depth   int
		prevEnd int
	)
	for cursor.Pos < cursor.InputSize {
		candidates := matchersWithoutRegex
		if regexAllowed(src, tokens) {
			candidates = matchersWithRegex
		}
		matched := cursor.MatchAfterOptional(whitespaceMatcher, candidates...)
		if matched.Code == parsly.EOF || matched.Code == parsly.Invalid {
			break
		}
		start, end := matched.Offset, cursor.Pos

		var kind tokenKind
		switch matched.Code {
		case blockCommentToken, lineCommentToken:
			continue
		case anyToken:
			if isSpace(src[start]) {
				continue
			}
			kind = kindPunct
		case singleQuotedToken, doubleQuotedToken:
			kind = kindString
		case templateToken:
			kind = kindTemplate
		case regexToken:
			kind = kindRegex
		case identToken:
			kind = kindIdent
		case numberToken:
			kind = kindNumber
		default:
			kind = kindPunct
		}

		tok := token{
			kind:    kind,
			start:   start,
			end:     end,
			newline: bytes.ContainsAny(src[prevEnd:start], "\n\r\u2028\u2029"),
		}
		if kind == kindPunct && end-start == 1 {
			switch src[start] {
			case '(', '[', '{':
				tok.depth = depth
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
				tok.depth = depth
			default:
				tok.depth = depth
			}
		} else {
			tok.depth = depth
		}
		tokens = append(tokens, tok)
		prevEnd = end
	}
	return tokens
}

// regexAllowed reports whether a slash at the current position starts a
// regular expression rather than a division, judging by the previous token.
func regexAllowed(src []byte, tokens []token) bool {
	if len(tokens) == 0 {
		return true
	}
	prev := tokens[len(tokens)-1]
	switch prev.kind {
	case kindIdent:
		return slices.Contains(regexPrefixKeywords, prev.text(src))
	case kindPunct:
		return !prev.is(src, ")") && !prev.is(src, "]") && !prev.is(src, "++") && !prev.is(src, "--")
	default:
		return false
	}
}

type lineCommentMatch struct{}

func (m *lineCommentMatch) Match(cursor *parsly.Cursor) int {
	input, pos := cursor.Input, cursor.Pos
	if pos+1 >= cursor.InputSize || input[pos] != '/' || input[pos+1] != '/' {
		return 0
	}
	end := pos + 2
	for end < cursor.InputSize && input[end] != '\n' && input[end] != '\r' {
		end++
	}
	return end - pos
}

type identMatch struct{}

func (m *identMatch) Match(cursor *parsly.Cursor) int {
	input, pos := cursor.Input, cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	start := pos
	// Private class members (#name) lex as identifiers.
	if input[pos] == '#' && pos+1 < cursor.InputSize && isIdentStart(input[pos+1]) {
		pos++
	}
	if !isIdentStart(input[pos]) {
		return 0
	}
	pos++
	for pos < cursor.InputSize && isIdentPart(input[pos]) {
		pos++
	}
	return pos - start
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

type numberMatch struct{}

func (m *numberMatch) Match(cursor *parsly.Cursor) int {
	input, pos := cursor.Input, cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	c := input[pos]
	if !isDigit(c) && !(c == '.' && pos+1 < size && isDigit(input[pos+1])) {
		return 0
	}
	end := pos + 1
	for end < size {
		c = input[end]
		switch {
		case isIdentPart(c) || c == '.':
			end++
		case (c == '+' || c == '-') && (input[end-1] == 'e' || input[end-1] == 'E') && !isHexLiteral(input[pos:end]):
			end++
		default:
			return end - pos
		}
	}
	return end - pos
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexLiteral(b []byte) bool {
	return len(b) > 1 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X')
}

type punctMatch struct{}

func (m *punctMatch) Match(cursor *parsly.Cursor) int {
	rest := cursor.Input[cursor.Pos:cursor.InputSize]
	if len(rest) == 0 {
		return 0
	}
	for _, p := range punctuators {
		if bytes.HasPrefix(rest, []byte(p)) {
			// "?.5" is a conditional followed by a number.
			if p == "?." && len(rest) > 2 && isDigit(rest[2]) {
				continue
			}
			return len(p)
		}
	}
	switch rest[0] {
	case '{', '}', '(', ')', '[', ']', ';', ',', '<', '>', '+', '-', '*', '/', '%',
		'&', '|', '^', '!', '~', '?', ':', '=', '.', '@', '#':
		return 1
	}
	return 0
}

type anyMatch struct{}

func (m *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

type templateMatch struct{}

func (m *templateMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || cursor.Input[cursor.Pos] != '`' {
		return 0
	}
	end := scanTemplate(cursor.Input[:cursor.InputSize], cursor.Pos)
	return end - cursor.Pos
}

// scanTemplate returns the offset just past the template literal starting at
// the backtick at pos. Substitutions may nest strings, comments and further
// templates. An unterminated template runs to the end of input.
func scanTemplate(input []byte, pos int) int {
	i := pos + 1
	for i < len(input) {
		switch input[i] {
		case '\\':
			i += 2
		case '`':
			return i + 1
		case '$':
			if i+1 < len(input) && input[i+1] == '{' {
				i = scanSubstitution(input, i+2)
				continue
			}
			i++
		default:
			i++
		}
	}
	return len(input)
}

// scanSubstitution skips a ${...} body starting after the opening brace and
// returns the offset past its closing brace.
func scanSubstitution(input []byte, i int) int {
	depth := 1
	for i < len(input) {
		switch c := input[i]; c {
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i
			}
		case '\'', '"':
			i = skipQuoted(input, i, c)
		case '`':
			i = scanTemplate(input, i)
		case '/':
			switch {
			case i+1 < len(input) && input[i+1] == '/':
				for i < len(input) && input[i] != '\n' {
					i++
				}
			case i+1 < len(input) && input[i+1] == '*':
				if end := bytes.Index(input[i+2:], []byte("*/")); end >= 0 {
					i += end + 4
				} else {
					i = len(input)
				}
			default:
				i++
			}
		default:
			i++
		}
	}
	return len(input)
}

func skipQuoted(input []byte, i int, quote byte) int {
	i++
	for i < len(input) {
		switch input[i] {
		case '\\':
			i += 2
		case quote, '\n':
			return i + 1
		default:
			i++
		}
	}
	return len(input)
}

type regexMatch struct{}

func (m *regexMatch) Match(cursor *parsly.Cursor) int {
	input, pos := cursor.Input, cursor.Pos
	size := cursor.InputSize
	if pos+1 >= size || input[pos] != '/' || input[pos+1] == '/' || input[pos+1] == '*' {
		return 0
	}
	i := pos + 1
	inClass := false
	for i < size {
		switch input[i] {
		case '\\':
			i += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n', '\r':
			return 0
		case '/':
			if !inClass {
				i++
				for i < size && isIdentPart(input[i]) {
					i++
				}
				return i - pos
			}
		}
		i++
	}
	return 0
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
