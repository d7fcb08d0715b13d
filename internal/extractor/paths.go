package extractor

import "strings"

// SplitPath turns a Rust path expression into its segments.
// Generic arguments and qualified-self prefixes are dropped:
//
//	Vec::<u8>::new          -> [Vec new]
//	<T as Default>::default -> [default]
//	::std::mem::take        -> [std mem take]
func SplitPath(text string) []string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth > 0, r == ' ', r == '\t', r == '\n', r == '\r':
		default:
			b.WriteRune(r)
		}
	}
	var out []string
	for _, seg := range strings.Split(b.String(), "::") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// NormalizePath rewrites crate, self and super prefixes against module,
// whose first element is the crate name.
func NormalizePath(path, module []string) []string {
	if len(path) == 0 || len(module) == 0 {
		return append([]string(nil), path...)
	}
	switch path[0] {
	case "crate":
		return append([]string{module[0]}, path[1:]...)
	case "self":
		return append(append([]string(nil), module...), path[1:]...)
	case "super":
		base := append([]string(nil), module...)
		i := 0
		for i < len(path) && path[i] == "super" {
			if len(base) > 1 {
				base = base[:len(base)-1]
			}
			i++
		}
		return append(base, path[i:]...)
	}
	return append([]string(nil), path...)
}

// TypeName reduces a type expression to the bare name used to match impl blocks.
//
//	&'a mut Parser<T> -> Parser
//	crate::ast::Node  -> Node
func TypeName(text string) string {
	t := strings.TrimSpace(text)
	for {
		prev := t
		t = strings.TrimPrefix(t, "&")
		t = strings.TrimSpace(t)
		if strings.HasPrefix(t, "'") {
			if i := strings.IndexAny(t, " \t"); i >= 0 {
				t = strings.TrimSpace(t[i:])
			}
		}
		for _, kw := range []string{"mut ", "dyn ", "impl "} {
			t = strings.TrimPrefix(t, kw)
		}
		if t == prev {
			break
		}
	}
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "::"); i >= 0 {
		t = t[i+2:]
	}
	return strings.TrimSpace(t)
}

// IsTypeLike reports whether a path segment names a type, a variant or a constant.
func IsTypeLike(segment string) bool {
	return segment != "" && segment[0] >= 'A' && segment[0] <= 'Z'
}
