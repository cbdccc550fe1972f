package sync

import (
	"fmt"
	"strings"
)

// DiffHunk represents a contiguous block of changes in a diff.
type DiffHunk struct {
	// LocalStart is the starting line number on the local side.
	LocalStart int

	// LocalCount is the number of local lines in the hunk.
	LocalCount int

	// UpstreamStart is the starting line number on the upstream side.
	UpstreamStart int

	// UpstreamCount is the number of upstream lines in the hunk.
	UpstreamCount int

	// Lines contains the diff lines with prefixes (+, -, space).
	Lines []DiffLine
}

// DiffLine represents a single line in a diff.
type DiffLine struct {
	// Type indicates if this line is added, removed, or unchanged.
	Type DiffLineType

	// Content is the actual line content.
	Content string
}

// DiffLineType indicates the type of a diff line.
type DiffLineType string

const (
	// DiffLineContext is an unchanged line (context).
	DiffLineContext DiffLineType = " "

	// DiffLineAdded is a line the upstream version adds.
	DiffLineAdded DiffLineType = "+"

	// DiffLineRemoved is a local line the upstream version drops.
	DiffLineRemoved DiffLineType = "-"
)

// String returns a human-readable representation of the diff line.
func (dl DiffLine) String() string {
	return string(dl.Type) + dl.Content
}

// ComputeDiff computes the hunks between the local and upstream versions of
// a file. Removed lines come from the local side, added lines from upstream.
func ComputeDiff(local, upstream string) []DiffHunk {
	return computeHunks(splitLines(local), splitLines(upstream))
}

// Unified renders a git-style unified diff between the local and upstream
// versions of path. Identical content yields an empty string.
func Unified(path, local, upstream string) string {
	if local == upstream {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- local/%s\n", path))
	sb.WriteString(fmt.Sprintf("+++ upstream/%s\n", path))

	for _, hunk := range computeHunks(splitLines(local), splitLines(upstream)) {
		sb.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n",
			hunk.LocalStart, hunk.LocalCount,
			hunk.UpstreamStart, hunk.UpstreamCount))
		for _, line := range hunk.Lines {
			sb.WriteString(line.String())
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// DiffStat summarizes a hunk list as "+added/-removed lines".
func DiffStat(hunks []DiffHunk) string {
	added := 0
	removed := 0
	for _, hunk := range hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case DiffLineAdded:
				added++
			case DiffLineRemoved:
				removed++
			}
		}
	}
	return fmt.Sprintf("%d hunk(s), +%d/-%d lines", len(hunks), added, removed)
}

// splitLines splits content into lines, treating empty content as no lines
// so deletions do not produce a phantom empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// computeHunks computes the diff hunks between local and upstream lines.
// This implements a simplified diff algorithm based on longest common
// subsequence.
func computeHunks(local, upstream []string) []DiffHunk {
	// Find the longest common subsequence to guide the diff
	lcs := longestCommonSubsequence(local, upstream)

	var hunks []DiffHunk
	var currentHunk *DiffHunk

	localIdx, upstreamIdx, lcsIdx := 0, 0, 0

	for localIdx < len(local) || upstreamIdx < len(upstream) {
		// Check if current lines are in the LCS
		inLCS := lcsIdx < len(lcs) &&
			localIdx < len(local) &&
			upstreamIdx < len(upstream) &&
			local[localIdx] == lcs[lcsIdx] &&
			upstream[upstreamIdx] == lcs[lcsIdx]

		if inLCS {
			// Common line - add as context or close hunk
			if currentHunk != nil {
				// Add context line to close the hunk
				currentHunk.Lines = append(currentHunk.Lines, DiffLine{
					Type:    DiffLineContext,
					Content: local[localIdx],
				})
				hunks = append(hunks, *currentHunk)
				currentHunk = nil
			}
			localIdx++
			upstreamIdx++
			lcsIdx++
		} else {
			// Different lines - start or continue a hunk
			if currentHunk == nil {
				currentHunk = &DiffHunk{
					LocalStart:    localIdx + 1,
					UpstreamStart: upstreamIdx + 1,
				}
			}

			// Check if local line is not in common
			if localIdx < len(local) && (lcsIdx >= len(lcs) || local[localIdx] != lcs[lcsIdx]) {
				currentHunk.Lines = append(currentHunk.Lines, DiffLine{
					Type:    DiffLineRemoved,
					Content: local[localIdx],
				})
				currentHunk.LocalCount++
				localIdx++
			}

			// Check if upstream line is not in common
			if upstreamIdx < len(upstream) && (lcsIdx >= len(lcs) || upstream[upstreamIdx] != lcs[lcsIdx]) {
				currentHunk.Lines = append(currentHunk.Lines, DiffLine{
					Type:    DiffLineAdded,
					Content: upstream[upstreamIdx],
				})
				currentHunk.UpstreamCount++
				upstreamIdx++
			}
		}
	}

	// Don't forget the last hunk
	if currentHunk != nil {
		hunks = append(hunks, *currentHunk)
	}

	return hunks
}

// longestCommonSubsequence finds the LCS of two string slices.
func longestCommonSubsequence(local, upstream []string) []string {
	m, n := len(local), len(upstream)
	if m == 0 || n == 0 {
		return nil
	}

	// Build LCS length table
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if local[i-1] == upstream[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	// Backtrack to find the LCS
	lcs := make([]string, dp[m][n])
	i, j, idx := m, n, dp[m][n]-1

	for i > 0 && j > 0 {
		if local[i-1] == upstream[j-1] {
			lcs[idx] = local[i-1]
			i--
			j--
			idx--
		} else if dp[i-1][j] > dp[i][j-1] {
			i--
		} else {
			j--
		}
	}

	return lcs
}
