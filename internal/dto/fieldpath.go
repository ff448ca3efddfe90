package dto

import (
	"strings"
)

// ParseValuePath splits a value field path into components. Index
// components keep their brackets and must hold a decimal index:
//
//	ParseValuePath("a.b[2].c") == ["a", "b", "[2]", "c"]
//	ParseValuePath("[2].sub")  == ["[2]", "sub"]
func ParseValuePath(path string) ([]string, error) {
	return splitPath(path, false)
}

// ParseTypePath splits a type field path into components. Index components
// must be empty brackets: "a[].b" == ["a", "[]", "b"].
func ParseTypePath(path string) ([]string, error) {
	return splitPath(path, true)
}

func splitPath(path string, typePath bool) ([]string, error) {
	var tokens []string
	rest := path
	for rest != "" {
		if rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, parseError("FieldPath", "%q: missing ']'", path)
			}
			inner := rest[1:end]
			if typePath && inner != "" {
				return nil, parseError("FieldPath", "%q: type paths take '[]', got %q", path, rest[:end+1])
			}
			if !typePath && !isDecimal(inner) {
				return nil, parseError("FieldPath", "%q: index %q is not a number", path, inner)
			}
			tokens = append(tokens, rest[:end+1])
			rest = rest[end+1:]
			switch {
			case rest == "", rest[0] == '[':
			case rest[0] == '.':
				rest = rest[1:]
				if rest != "" && (rest[0] == '.' || rest[0] == '[') {
					return nil, parseError("FieldPath", "%q: empty component after ']'", path)
				}
			default:
				return nil, parseError("FieldPath", "%q: unexpected %q after ']'", path, rest[0])
			}
			continue
		}

		end := strings.IndexAny(rest, ".[")
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		if name == "" {
			return nil, parseError("FieldPath", "%q: empty component", path)
		}
		if strings.ContainsAny(name, " ]") {
			return nil, parseError("FieldPath", "%q: invalid name %q", path, name)
		}
		tokens = append(tokens, name)
		rest = rest[end:]
		if strings.HasPrefix(rest, ".") {
			rest = rest[1:]
			if rest == "" {
				return nil, parseError("FieldPath", "%q: trailing '.'", path)
			}
		}
	}
	return tokens, nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
