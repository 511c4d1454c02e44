// Package patch turns a model-emitted search/replace block into an exact,
// minimal mutation of a file's text. Models produce sloppy markers and
// whitespace drift; the parser and matcher tolerate both without ever
// corrupting the regions they do not touch.
package patch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"codewright/internal/logging"
)

// Block is a parsed search/replace pair. Search and Replace hold
// newline-joined line sequences exactly as they appeared between markers.
type Block struct {
	Search  string
	Replace string
}

var (
	// ErrParse is returned when no recognizable marker structure exists in
	// a payload. Distinct from ErrNoMatch so the model gets told to fix
	// its formatting rather than its content.
	ErrParse = errors.New("no valid search/replace block found")

	// ErrNoMatch is returned when a well-formed block matches nothing in
	// the target text at any tier.
	ErrNoMatch = errors.New("search block not found in file")
)

// Marker grammar: models drift on the number of marker characters and on
// trailing text, so only the leading run and the keyword are significant.
var (
	searchMarkerRe  = regexp.MustCompile(`^<{3,}(.*)$`)
	separatorRe     = regexp.MustCompile(`^={3,}`)
	replaceMarkerRe = regexp.MustCompile(`^>{3,}\s*REPLACE`)
)

// IsBlockStart reports whether a line opens a search/replace block. The
// action parser uses this to detect an implicit diff payload.
func IsBlockStart(line string) bool {
	m := searchMarkerRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	rest := strings.TrimSpace(m[1])
	return rest == "" || strings.HasPrefix(rest, "SEARCH")
}

// ParseBlock extracts the first search/replace block from a raw payload.
//
// Accepted shape, loosely:
//
//	<<<<<<< SEARCH          (3+ '<', optional trailing text, SEARCH on
//	old lines                this line or the next)
//	=======                 (3+ '=', optional trailing text)
//	new lines
//	>>>>>>> REPLACE         (3+ '>'; optional - truncated blocks take the
//	                         remainder of the payload as replacement)
func ParseBlock(payload string) (Block, error) {
	lines := strings.Split(payload, "\n")

	const (
		stateSeek = iota
		stateExpectSearchKeyword
		stateSearch
		stateReplace
	)

	state := stateSeek
	var searchLines, replaceLines []string
	sawSeparator := false
	sawClose := false

scan:
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch state {
		case stateSeek:
			m := searchMarkerRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			rest := strings.TrimSpace(m[1])
			switch {
			case strings.HasPrefix(rest, "SEARCH"):
				state = stateSearch
			case rest == "":
				// Keyword may arrive on the following line.
				state = stateExpectSearchKeyword
			}

		case stateExpectSearchKeyword:
			if strings.HasPrefix(strings.TrimSpace(line), "SEARCH") {
				state = stateSearch
				continue
			}
			// Not actually a block opener; re-examine this line, it may
			// itself open the block.
			state = stateSeek
			i--

		case stateSearch:
			if separatorRe.MatchString(line) {
				sawSeparator = true
				state = stateReplace
				continue
			}
			searchLines = append(searchLines, line)

		case stateReplace:
			if replaceMarkerRe.MatchString(line) {
				sawClose = true
				break scan
			}
			replaceLines = append(replaceLines, line)
		}
	}

	if !sawSeparator {
		return Block{}, fmt.Errorf("%w: expected <<<<<<< SEARCH, =======, >>>>>>> REPLACE markers", ErrParse)
	}

	// Truncated block: the close marker never arrived, so the remainder of
	// the payload is the replacement. Line splitting leaves a phantom
	// empty element after the final newline; drop it.
	if !sawClose {
		for len(replaceLines) > 0 && replaceLines[len(replaceLines)-1] == "" {
			replaceLines = replaceLines[:len(replaceLines)-1]
		}
	}

	block := Block{
		Search:  strings.Join(searchLines, "\n"),
		Replace: strings.Join(replaceLines, "\n"),
	}
	logging.PatchDebug("parsed block: search_lines=%d replace_lines=%d", len(searchLines), len(replaceLines))
	return block, nil
}

// strategy attempts one matching tier. It returns the mutated text and
// whether the tier matched; a non-matching tier must leave no trace.
type strategy func(original string, block Block) (string, bool)

// strategies is the ordered tier list; the first success wins. New tiers
// append here without disturbing the guarantees of earlier ones.
var strategies = []strategy{
	matchExact,
	matchWhitespaceRelaxed,
}

// Apply locates the search region in original and replaces it, trying each
// tier in order. It never returns a partially modified text: on failure the
// caller keeps the original untouched.
func Apply(original string, block Block) (string, error) {
	if isBlankBlock(block.Search) {
		return "", fmt.Errorf("%w: search block is empty", ErrNoMatch)
	}

	for i, apply := range strategies {
		if result, ok := apply(original, block); ok {
			logging.PatchDebug("apply: tier %d matched", i)
			return result, nil
		}
	}

	logging.Patch("apply: no tier matched (search_len=%d)", len(block.Search))
	return "", fmt.Errorf("%w; ensure the SEARCH text matches the file exactly", ErrNoMatch)
}

// isBlankBlock reports whether the search text is empty once empty lines
// are stripped.
func isBlankBlock(search string) bool {
	for _, line := range strings.Split(search, "\n") {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// matchExact replaces the first literal occurrence of the search text.
// Everything outside that occurrence stays byte-identical.
func matchExact(original string, block Block) (string, bool) {
	if !strings.Contains(original, block.Search) {
		return "", false
	}
	return strings.Replace(original, block.Search, block.Replace, 1), true
}

// matchWhitespaceRelaxed compares line sequences with leading/trailing
// whitespace stripped, then splices the replacement into the original at
// the first matching window. Lines outside the window keep their original
// bytes, indentation included.
func matchWhitespaceRelaxed(original string, block Block) (string, bool) {
	origLines := strings.Split(original, "\n")
	searchLines := strings.Split(block.Search, "\n")

	stripped := make([]string, len(origLines))
	for i, l := range origLines {
		stripped[i] = strings.TrimSpace(l)
	}
	want := make([]string, len(searchLines))
	for i, l := range searchLines {
		want[i] = strings.TrimSpace(l)
	}

	w := len(want)
	if w == 0 || w > len(origLines) {
		return "", false
	}

	for i := 0; i+w <= len(origLines); i++ {
		if !windowEqual(stripped[i:i+w], want) {
			continue
		}
		var out []string
		out = append(out, origLines[:i]...)
		out = append(out, block.Replace)
		out = append(out, origLines[i+w:]...)
		return strings.Join(out, "\n"), true
	}
	return "", false
}

func windowEqual(got, want []string) bool {
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
