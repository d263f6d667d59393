package registry

import (
	"path/filepath"
	"runtime"
	"strings"
)

// caseInsensitiveFS reports whether path comparison should fold case.
// Default filesystems on these platforms are case-insensitive.
var caseInsensitiveFS = runtime.GOOS == "darwin" || runtime.GOOS == "windows"

// normalizePath rewrites a path for comparison: forward slashes, cleaned,
// no trailing separator, case-folded only on case-insensitive filesystems.
func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		p = "/"
	}
	if caseInsensitiveFS {
		p = strings.ToLower(p)
	}
	return p
}

// pathMatches reports whether entry and cwd are equal, or one is a strict
// ancestor of the other at a path-separator boundary. A bare string prefix
// is never enough: /work/app must not match /work/app2.
func pathMatches(entry, cwd string) bool {
	if entry == cwd {
		return true
	}
	if strings.HasPrefix(cwd, entry+"/") {
		return true // entry is an ancestor of cwd
	}
	if strings.HasPrefix(entry, cwd+"/") {
		return true // entry is a descendant of cwd
	}
	return false
}

// FindRepoForPath resolves which registered repo owns cwd. When multiple
// entries match, the longest (most specific) resolved path wins. No match
// returns ok=false; resolution never fails.
func (g *Registry) FindRepoForPath(cwd string) (*Repo, bool) {
	repos, err := g.List(false)
	if err != nil {
		return nil, false
	}

	target := normalizePath(cwd)
	var best *Repo
	bestLen := -1
	for i := range repos {
		entry := normalizePath(repos[i].RepoPath)
		if !pathMatches(entry, target) {
			continue
		}
		if len(entry) > bestLen {
			best = &repos[i]
			bestLen = len(entry)
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
