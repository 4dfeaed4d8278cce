package security

import (
	"net/url"
	"strings"
)

// MaxRedirectLength bounds the size of a redirect target taken from user input.
const MaxRedirectLength = 512

// SafeRedirectPath returns next when it is a same-origin absolute path,
// otherwise fallback. It rejects scheme-relative targets ("//host"),
// backslash tricks ("/\host"), absolute URLs and control characters so a
// login form cannot be turned into an open redirect.
func SafeRedirectPath(next, fallback string) string {
	if next == "" || len(next) > MaxRedirectLength {
		return fallback
	}

	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}

	for _, r := range next {
		if r < 0x20 || r == 0x7f {
			return fallback
		}
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}

	return next
}
