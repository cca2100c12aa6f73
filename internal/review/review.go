// Package review implements the review tools a roll can be uploaded with.
package review

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/webrtc/autoroller/internal/roll"
)

var (
	issueReplyRe = regexp.MustCompile(`^Issue number: ([0-9]+) \((.*)\)$`)
	reviewURLRe  = regexp.MustCompile(`^https?://([^/\s]+)(?:/.*)?$`)
)

// ParseIssueReply parses the "Issue number: N (url)" reply of `git cl issue`
func ParseIssueReply(output string) (*roll.ReviewInfo, error) {
	m := issueReplyRe.FindStringSubmatch(strings.TrimSpace(output))
	if m == nil {
		return nil, &roll.ParseError{What: "review issue", Input: output}
	}
	issue, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, &roll.ParseError{What: "review issue number", Input: output}
	}
	return NewInfo(issue, m[2])
}

// NewInfo builds the review info of an uploaded change, deriving the host from its URL
func NewInfo(issue int, url string) (*roll.ReviewInfo, error) {
	host, err := ParseHost(url)
	if err != nil {
		return nil, err
	}
	return &roll.ReviewInfo{Issue: issue, URL: url, Host: host}, nil
}

// ParseHost extracts the review host from a review URL
func ParseHost(url string) (string, error) {
	m := reviewURLRe.FindStringSubmatch(url)
	if m == nil {
		return "", &roll.ParseError{What: "review host", Input: url}
	}
	return m[1], nil
}
