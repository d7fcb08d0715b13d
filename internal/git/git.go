package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// GetChangedFiles runs git diff in dir against baseRef and returns the changed
// files with line numbers of the new version. Paths are relative to dir.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "diff", "--relative", "-U0", baseRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	return ParseDiff(output)
}

// ParseDiff extracts changed lines from unified diff output. Deleted files
// are skipped; a pure deletion hunk marks the line it was removed at.
func ParseDiff(output []byte) ([]ChangedFile, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(output)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	var changes []ChangedFile
	for _, fd := range fileDiffs {
		if fd.NewName == "/dev/null" {
			continue
		}
		cf := ChangedFile{Path: strings.TrimPrefix(fd.NewName, "b/"), ChangedLines: []int{}}
		for _, hunk := range fd.Hunks {
			cf.ChangedLines = append(cf.ChangedLines, hunkLines(hunk)...)
		}
		changes = append(changes, cf)
	}
	return changes, nil
}

func hunkLines(h *diff.Hunk) []int {
	if h.NewLines == 0 {
		if h.NewStartLine > 0 {
			return []int{int(h.NewStartLine)}
		}
		return nil
	}

	var lines []int
	cur := int(h.NewStartLine)
	scanner := bufio.NewScanner(bytes.NewReader(h.Body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "+"):
			lines = append(lines, cur)
			cur++
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, `\`):
		default:
			cur++
		}
	}
	return lines
}
