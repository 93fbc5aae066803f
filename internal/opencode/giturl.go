package opencode

import (
	"regexp"
	"strings"
)

var scpLikeRe = regexp.MustCompile(`^(?:([\w.-]+)@)?([\w.-]+):(.+)$`)

// Normalize folds every surface form of a git remote URL to one canonical
// key: lowercased host, `.git` suffix stripped, leading slashes on the path
// collapsed. `git@host:org/repo.git`, `ssh://git@host/org/repo`, and
// `https://host/org/repo.git` all normalize to `host/org/repo`.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
		if at := strings.LastIndex(s, "@"); at >= 0 && at < strings.Index(s, "/") {
			s = s[at+1:]
		}
	} else if m := scpLikeRe.FindStringSubmatch(s); m != nil {
		s = m[2] + "/" + m[3]
	}

	s = strings.ToLower(s)
	s = strings.TrimSuffix(s, ".git")
	s = strings.Trim(s, "/")
	s = strings.ReplaceAll(s, "//", "/")
	return s
}

// ProjectNameFromURL derives a filesystem-friendly project name from a git
// URL: the last path segment, with anything that isn't alnum/dash/underscore
// folded to a dash.
func ProjectNameFromURL(rawOrNormalized string) string {
	n := Normalize(rawOrNormalized)
	parts := strings.Split(n, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "project"
	}
	var b strings.Builder
	for _, r := range last {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
