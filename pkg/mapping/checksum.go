package mapping

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// ChecksumError reports a missing or mismatched sha1sum. Callers decide
// whether to fail, warn, or ignore via ParseOptions.
type ChecksumError struct {
	Basename string
	Reason   string
}

func (e *ChecksumError) Error() string {
	if e.Basename == "" {
		return "mapping: " + e.Reason
	}
	return fmt.Sprintf("mapping: %s in %q", e.Reason, e.Basename)
}

// Checksum computes the sha1 hex digest of mapping text, skipping every line
// that mentions sha1sum so the stored digest does not feed itself.
func Checksum(text string) string {
	var kept strings.Builder
	for _, line := range splitKeepEnds(text) {
		if strings.Contains(line, "sha1sum") {
			continue
		}
		kept.WriteString(line)
	}
	sum := sha1.Sum([]byte(kept.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum checks the header digest against the original text.
func VerifyChecksum(text, basename string, header Header) error {
	if header.SHA1Sum == "" {
		return &ChecksumError{Basename: basename, Reason: "sha1sum is missing"}
	}
	if Checksum(text) != header.SHA1Sum {
		return &ChecksumError{Basename: basename, Reason: "sha1sum mismatch"}
	}
	return nil
}

// sha1Pattern locates the stored digest inside rendered header text.
var sha1Pattern = regexp.MustCompile(`('sha1sum'\s*:\s*)'([0-9a-f]*)'`)

// VerifyTextChecksum checks the stored digest of raw mapping text without
// parsing it.
func VerifyTextChecksum(text, basename string) error {
	match := sha1Pattern.FindStringSubmatch(text)
	if match == nil || match[2] == "" {
		return &ChecksumError{Basename: basename, Reason: "sha1sum is missing"}
	}
	if Checksum(text) != match[2] {
		return &ChecksumError{Basename: basename, Reason: "sha1sum mismatch"}
	}
	return nil
}

// RefreshChecksum rewrites the stored sha1sum of mapping text with a
// freshly computed digest. Digest lines are excluded from the checksum, so
// the rewrite does not invalidate it.
func RefreshChecksum(text string) (string, error) {
	if !sha1Pattern.MatchString(text) {
		return "", &ChecksumError{Reason: "sha1sum header key is missing"}
	}
	digest := Checksum(text)
	return sha1Pattern.ReplaceAllString(text, "${1}'"+digest+"'"), nil
}

// splitKeepEnds splits text into lines retaining their terminators, so the
// digest covers the exact bytes on disk.
func splitKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
