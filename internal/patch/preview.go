package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Preview renders a unified-style diff between two versions of a file, for
// display before the confirmation gate and in diff-only mode. Rendering
// only: applying edits goes through Apply, never through this diff.

const previewContext = 3

type lineKind int

const (
	lineContext lineKind = iota
	lineRemoved
	lineAdded
)

type lineOp struct {
	kind    lineKind
	oldLine int
	newLine int
	text    string
}

// Preview returns a unified-style diff of oldContent -> newContent with
// file headers. Returns "" when the contents are identical.
func Preview(path, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// Line-level reduction avoids newline boundary artifacts when
	// converting character diffs back to line ops.
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := diffsToLineOps(diffs)
	hunks := groupOps(ops, previewContext)
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range hunks {
		sb.WriteString(renderHunk(h))
	}
	return sb.String()
}

func diffsToLineOps(diffs []diffmatchpatch.Diff) []lineOp {
	var ops []lineOp
	oldLine, newLine := 0, 0

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, text := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, lineOp{lineContext, oldLine, newLine, text})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, lineOp{lineRemoved, oldLine, -1, text})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, lineOp{lineAdded, -1, newLine, text})
				newLine++
			}
		}
	}
	return ops
}

// groupOps groups changed lines into context-padded hunks.
func groupOps(ops []lineOp, context int) [][]lineOp {
	var hunks [][]lineOp
	var current []lineOp
	lastChange := -1

	for i, op := range ops {
		if op.kind != lineContext {
			if current == nil {
				start := i - context
				if start < 0 {
					start = 0
				}
				current = append(current, ops[start:i]...)
			}
			lastChange = i
		}
		if current == nil {
			continue
		}
		current = append(current, op)
		if op.kind == lineContext && i-lastChange >= context {
			// Enough trailing context; close the hunk unless another
			// change follows within reach.
			if !changeWithin(ops, i+1, context) {
				hunks = append(hunks, current)
				current = nil
			}
		}
	}
	if current != nil {
		hunks = append(hunks, current)
	}
	return hunks
}

func changeWithin(ops []lineOp, from, distance int) bool {
	for i := from; i < len(ops) && i < from+distance; i++ {
		if ops[i].kind != lineContext {
			return true
		}
	}
	return false
}

func renderHunk(h []lineOp) string {
	oldStart, newStart := 0, 0
	oldCount, newCount := 0, 0
	for _, op := range h {
		if oldStart == 0 && op.oldLine >= 0 {
			oldStart = op.oldLine + 1
		}
		if newStart == 0 && op.newLine >= 0 {
			newStart = op.newLine + 1
		}
		switch op.kind {
		case lineContext:
			oldCount++
			newCount++
		case lineRemoved:
			oldCount++
		case lineAdded:
			newCount++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, op := range h {
		switch op.kind {
		case lineContext:
			sb.WriteString(" " + op.text + "\n")
		case lineRemoved:
			sb.WriteString("-" + op.text + "\n")
		case lineAdded:
			sb.WriteString("+" + op.text + "\n")
		}
	}
	return sb.String()
}
