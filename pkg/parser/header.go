package parser

import (
	"fmt"
	"strings"

	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// DefaultFormat is the input and output format assumed without a header.
const DefaultFormat = "json"

// headerSeparator ends the header section.
const headerSeparator = "---"

// ParseHeader splits the directive header from src. It returns the header,
// the byte offset at which the body starts and an error for a malformed
// directive.
//
// A header is present when the first non-blank line is a directive
// (%utlx, input or output) and a line consisting of "---" follows. Otherwise
// the whole text is the body and both formats default to json.
func ParseHeader(src string) (types.Header, int, error) {
	h := types.Header{Input: DefaultFormat, Output: DefaultFormat}

	lines := strings.SplitAfter(src, "\n")
	first := -1
	for i, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			first = i
			break
		}
	}
	if first < 0 || !isDirective(strings.TrimSpace(lines[first])) {
		return h, 0, nil
	}

	sep := -1
	for i := first; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == headerSeparator {
			sep = i
			break
		}
	}
	if sep < 0 {
		return h, 0, nil
	}

	offset := 0
	for i := 0; i < sep; i++ {
		ln := strings.TrimSpace(lines[i])
		pos := types.Pos{Offset: offset, Line: i + 1, Column: 1}
		offset += len(lines[i])
		if ln == "" || strings.HasPrefix(ln, "//") {
			continue
		}
		if err := applyDirective(&h, ln, pos); err != nil {
			return h, 0, err
		}
	}
	offset += len(lines[sep])
	h.Lines = sep + 1
	return h, offset, nil
}

func isDirective(line string) bool {
	word, _, _ := strings.Cut(line, " ")
	switch word {
	case "%utlx", "input", "output":
		return true
	}
	return false
}

func applyDirective(h *types.Header, line string, pos types.Pos) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "%utlx":
		if len(fields) != 2 {
			return types.NewParseError(types.ErrInvalidHeader, "Expected %utlx <version>", pos).WithToken(line)
		}
		h.Version = fields[1]
	case "input", "output":
		if len(fields) < 2 {
			return types.NewParseError(types.ErrInvalidHeader,
				fmt.Sprintf("Expected %s <format>", fields[0]), pos).WithToken(line)
		}
		opts := make(map[string]string, len(fields)-2)
		for _, f := range fields[2:] {
			k, v, ok := strings.Cut(f, "=")
			if !ok || k == "" {
				return types.NewParseError(types.ErrInvalidHeader,
					fmt.Sprintf("Invalid option %q, expected key=value", f), pos).WithToken(line)
			}
			opts[k] = strings.Trim(v, `"'`)
		}
		if fields[0] == "input" {
			h.Input = strings.ToLower(fields[1])
			h.InputOptions = opts
		} else {
			h.Output = strings.ToLower(fields[1])
			h.OutputOptions = opts
		}
	default:
		return types.NewParseError(types.ErrInvalidHeader,
			fmt.Sprintf("Unknown directive %q", fields[0]), pos).WithToken(line)
	}
	return nil
}
