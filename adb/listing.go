package adb

import (
	"path"
	"regexp"
	"strings"
)

// ListingEntry is one parsed line of a remote directory listing. Name has
// escape sequences resolved and the trailing directory marker stripped.
type ListingEntry struct {
	Name string
	Dir  bool
}

// UnescapeName resolves the escaping `ls` applies to names with embedded
// spaces (`\ ` becomes a literal space) and preserves the trailing `/`
// directory marker. No other escape sequence is touched; this matches the
// narrow convention the listing command actually emits. Empty input is
// returned unchanged.
func UnescapeName(name string) string {
	if name == "" {
		return name
	}
	isDir := strings.HasSuffix(name, "/")
	raw := strings.TrimRight(name, "/")
	unescaped := strings.ReplaceAll(raw, `\ `, " ")
	if isDir {
		unescaped += "/"
	}
	return unescaped
}

// ParseListing decodes the raw output of `ls -1p` (or `ls -p`) into entries.
// A trailing `/` classifies an entry as a directory; everything else is a
// file. Lines that cannot be classified are skipped rather than aborting the
// listing, since partial results beat none in an interactive browser.
func ParseListing(raw string) []ListingEntry {
	lines := strings.Split(raw, "\n")
	entries := make([]ListingEntry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name := UnescapeName(line)
		dir := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" {
			continue
		}
		entries = append(entries, ListingEntry{Name: name, Dir: dir})
	}
	return entries
}

// JoinRemote joins remote path elements with forward-slash semantics
// regardless of the host platform.
func JoinRemote(elem ...string) string {
	return path.Join(elem...)
}

// ParentRemote returns the parent of a remote path.
func ParentRemote(remote string) string {
	return path.Dir(remote)
}

var unsafeShellChars = regexp.MustCompile(`[^\w@%+=:,./-]`)

// shellQuote wraps s in single quotes when it contains characters the remote
// shell would interpret, so escaped listing names round-trip through `ls`.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !unsafeShellChars.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
