package osc

import (
	"strings"
)

// AddressKind classifies a string as a concrete OSC address, an address
// pattern, or neither.
type AddressKind int

const (
	// KindInvalid marks a string that is not a legal address or pattern.
	KindInvalid AddressKind = iota
	// KindAddress marks a concrete address with no wildcard characters.
	KindAddress
	// KindPattern marks an address pattern containing at least one
	// wildcard.
	KindPattern
)

func (k AddressKind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindPattern:
		return "pattern"
	default:
		return "invalid"
	}
}

// Classify applies the OSC address rules left to right and reports whether
// addr is a concrete address, a pattern, or invalid.
//
// An address must start with '/', be at least two bytes long, and not end
// with '/'. Space and '#' are rejected anywhere, as are non-printable and
// non-ASCII bytes. '*', '?', '[', ']', '{', '}' outside brackets/braces make
// the string a pattern; unbalanced, mixed or re-opened brackets/braces make
// it invalid. Two or more consecutive '/' are the any-depth wildcard and also
// force pattern classification.
func Classify(addr string) AddressKind {
	if len(addr) < 2 || addr[0] != '/' || addr[len(addr)-1] == '/' {
		return KindInvalid
	}

	kind := KindAddress
	inBracket := false
	inBrace := false

	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c <= ' ' || c >= 0x7f || c == '#' {
			return KindInvalid
		}

		switch c {
		case '[':
			if inBracket || inBrace {
				return KindInvalid
			}
			inBracket = true
			kind = KindPattern
		case ']':
			if !inBracket {
				return KindInvalid
			}
			inBracket = false
		case '{':
			if inBracket || inBrace {
				return KindInvalid
			}
			inBrace = true
			kind = KindPattern
		case '}':
			if !inBrace {
				return KindInvalid
			}
			inBrace = false
		case '*', '?':
			if !inBracket && !inBrace {
				kind = KindPattern
			}
		case '/':
			if i > 0 && addr[i-1] == '/' {
				kind = KindPattern
			}
		}
	}

	if inBracket || inBrace {
		return KindInvalid
	}
	return kind
}

// Match reports whether the pattern matches the concrete address. Matching is
// defined for Pattern-vs-Address and for identical strings; two different
// patterns never match each other (byte equality is the only pattern/pattern
// comparator).
func Match(pattern, addr string) bool {
	if pattern == addr {
		return Classify(pattern) != KindInvalid
	}
	if Classify(pattern) != KindPattern || Classify(addr) != KindAddress {
		return false
	}
	return matchHere(pattern, addr)
}

// matchHere is the byte-wise recursive-descent matcher. It consumes literal
// bytes iteratively and recurses only where backtracking is required.
func matchHere(p, a string) bool {
	for {
		if len(p) == 0 {
			return len(a) == 0
		}

		switch p[0] {
		case '?':
			if len(a) == 0 || a[0] == '/' {
				return false
			}
			p, a = p[1:], a[1:]

		case '*':
			return matchStar(p[1:], a)

		case '[':
			end := strings.IndexByte(p, ']')
			if end == -1 || len(a) == 0 {
				return false
			}
			if !classMatch(p[1:end], a[0]) {
				return false
			}
			p, a = p[end+1:], a[1:]

		case '{':
			return matchAlt(p, a)

		case '/':
			if len(p) > 1 && p[1] == '/' {
				return matchAnyDepth(p, a)
			}
			if len(a) == 0 || a[0] != '/' {
				return false
			}
			p, a = p[1:], a[1:]

		default:
			if len(a) == 0 || a[0] != p[0] {
				return false
			}
			p, a = p[1:], a[1:]
		}
	}
}

// matchStar handles '*': zero or more non-'/' bytes within the current
// segment. Longest run first, backtracking over every suffix position.
func matchStar(p, a string) bool {
	limit := strings.IndexByte(a, '/')
	if limit == -1 {
		limit = len(a)
	}
	for i := limit; i >= 0; i-- {
		if matchHere(p, a[i:]) {
			return true
		}
	}
	return false
}

// classMatch evaluates one '[...]' body against a single byte. A leading '!'
// negates, 'a-z' is an inclusive range (normalized if given descending), a
// standalone '-' is literal, and an empty class matches any one character.
func classMatch(body string, c byte) bool {
	neg := false
	if len(body) > 0 && body[0] == '!' {
		neg = true
		body = body[1:]
	}
	if len(body) == 0 {
		return true
	}

	matched := false
	for i := 0; i < len(body); {
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if lo <= c && c <= hi {
				matched = true
			}
			i += 3
		} else {
			if body[i] == c {
				matched = true
			}
			i++
		}
	}
	return matched != neg
}

// matchAlt handles '{a,b,c}': the address must start with one of the listed
// literal alternatives. The first alternative that lets the remainder match
// wins. An empty '{}' matches unconditionally, consuming nothing.
func matchAlt(p, a string) bool {
	end := strings.IndexByte(p, '}')
	if end == -1 {
		return false
	}
	body, rest := p[1:end], p[end+1:]
	if body == "" {
		return matchHere(rest, a)
	}

	for _, alt := range strings.Split(body, ",") {
		if strings.HasPrefix(a, alt) && matchHere(rest, a[len(alt):]) {
			return true
		}
	}
	return false
}

// matchAnyDepth handles '//': the '/' plus any number of complete address
// segments. Runs of three or more '/' collapse to a single occurrence. The
// remainder of the pattern is retried at each segment boundary, nearest
// first.
func matchAnyDepth(p, a string) bool {
	i := 0
	for i < len(p) && p[i] == '/' {
		i++
	}
	rest := p[i:]

	if len(a) == 0 || a[0] != '/' {
		return false
	}
	for j := 0; j < len(a); j++ {
		if a[j] == '/' && matchHere(rest, a[j+1:]) {
			return true
		}
	}
	return false
}
