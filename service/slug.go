package service

import (
	"regexp"
	"strings"
)

var (
	slugSpaces    = regexp.MustCompile(`\s+`)
	slugInvalid   = regexp.MustCompile(`[^\w\-]+`)
	slugCollapse  = regexp.MustCompile(`\-\-+`)
	slugEdgeTrims = regexp.MustCompile(`^-+|-+$`)
)

// Slugify converts free text into a URL-friendly slug:
// "Ram Chate" -> "ram-chate".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = slugEdgeTrims.ReplaceAllString(s, "")
	return s
}

// PollSlug builds a fallback unique link for a poll from the owning leader's
// name and the poll ID suffix, used when the leader did not pick a name:
// ("Ram Chate", "...a1b2c3") -> "ram-chate-a1b2c3".
func PollSlug(leaderName, pollID string) string {
	suffix := pollID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	name := Slugify(leaderName)
	if name == "" {
		return "poll-" + suffix
	}
	return name + "-" + suffix
}

// LeaderSlug builds a profile slug for a leader, suffixed with a short ID
// fragment to avoid collisions between same-named leaders.
func LeaderSlug(name, leaderID string) string {
	suffix := leaderID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	base := Slugify(name)
	if base == "" {
		return "leader-" + suffix
	}
	return base + "-" + suffix
}
