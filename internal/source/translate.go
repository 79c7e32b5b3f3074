// Package source rewrites human-facing hosting URLs into the URLs that serve raw file content.
package source

import (
	"net/url"
	"strings"
)

// Rule describes a single provider rewrite.
type Rule struct {
	Name string
	Host string
	// rewrite returns the rewritten path segments, or false when the path does not fit the rule.
	rewrite func(segments []string) (host string, out []string, ok bool)
}

var rules = []Rule{
	{Name: "github-blob", Host: "github.com", rewrite: githubRaw},
	{Name: "gitlab-blob", Host: "gitlab.com", rewrite: gitlabRaw},
	{Name: "bitbucket-src", Host: "bitbucket.org", rewrite: bitbucketRaw},
}

// Rules returns the provider rewrite table.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Translate maps source to the URL that actually serves its raw content.
// Sources that match no rule, or that cannot be parsed, are returned unchanged.
func Translate(source string) string {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return source
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	for _, r := range rules {
		if r.Host != host {
			continue
		}
		newHost, out, ok := r.rewrite(segments)
		if !ok {
			return source
		}
		rewritten := url.URL{
			Scheme:   "https",
			Host:     newHost,
			RawQuery: u.RawQuery,
		}
		escaped := "/" + strings.Join(out, "/")
		path, err := url.PathUnescape(escaped)
		if err != nil {
			return source
		}
		rewritten.Path = path
		rewritten.RawPath = escaped
		return rewritten.String()
	}
	return source
}

// github.com/<owner>/<repo>/(blob|raw)/<ref>/<path...>
func githubRaw(segments []string) (string, []string, bool) {
	if len(segments) < 5 || (segments[2] != "blob" && segments[2] != "raw") {
		return "", nil, false
	}
	out := append([]string{segments[0], segments[1]}, segments[3:]...)
	return "raw.githubusercontent.com", out, true
}

// gitlab.com/<namespace...>/-/blob/<ref>/<path...>
func gitlabRaw(segments []string) (string, []string, bool) {
	for i := 0; i+3 < len(segments); i++ {
		if segments[i] == "-" && segments[i+1] == "blob" && i >= 2 {
			out := append([]string(nil), segments...)
			out[i+1] = "raw"
			return "gitlab.com", out, true
		}
	}
	return "", nil, false
}

// bitbucket.org/<workspace>/<repo>/src/<ref>/<path...>
func bitbucketRaw(segments []string) (string, []string, bool) {
	if len(segments) < 5 || segments[2] != "src" {
		return "", nil, false
	}
	out := append([]string(nil), segments...)
	out[2] = "raw"
	return "bitbucket.org", out, true
}
