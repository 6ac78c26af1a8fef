package normalize

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	fencedBlock     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	pythonLiterals  = regexp.MustCompile(`\b(None|True|False)\b`)
	bareDecimal     = regexp.MustCompile(`([:\[,]\s*)(-?)\.(\d)`)
	trailingCommas  = regexp.MustCompile(`,(\s*[}\]])`)
	errNoJSONObject = errors.New("no json object in response")
)

// parseLooseJSON decodes model output that is almost JSON: wrapped in code
// fences, surrounded by prose, or using Python literals, bare decimals and
// trailing commas.
func parseLooseJSON(raw string, out any) error {
	s := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	if err := json.Unmarshal([]byte(s), out); err == nil {
		return nil
	}
	obj := firstObject(s)
	if obj == "" {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(repairJSON(obj)), out)
}

// firstObject returns the first balanced {...} span, ignoring braces inside
// string literals.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func repairJSON(s string) string {
	return outsideStrings(s, func(seg string) string {
		seg = pythonLiterals.ReplaceAllStringFunc(seg, func(lit string) string {
			switch lit {
			case "None":
				return "null"
			case "True":
				return "true"
			default:
				return "false"
			}
		})
		seg = bareDecimal.ReplaceAllString(seg, "${1}${2}0.${3}")
		return trailingCommas.ReplaceAllString(seg, "$1")
	})
}

// outsideStrings applies fn to every segment of s that is not inside a JSON
// string literal.
func outsideStrings(s string, fn func(string) string) string {
	var out strings.Builder
	segStart := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				out.WriteString(s[segStart : i+1])
				segStart = i + 1
			}
			continue
		}
		if c == '"' {
			out.WriteString(fn(s[segStart:i]))
			segStart = i
			inString = true
		}
	}
	if inString {
		out.WriteString(s[segStart:])
	} else {
		out.WriteString(fn(s[segStart:]))
	}
	return out.String()
}
