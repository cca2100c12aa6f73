package roll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/webrtc/autoroller/cmd"
)

func TestChangeLogURL(t *testing.T) {
	url := ChangeLogURL("https://webrtc.googlesource.com/src.git",
		CommitInfo{Commit: webrtcOld}, CommitInfo{Commit: webrtcNew})
	assert.Equal(t, "https://webrtc.googlesource.com/src.git/+log/1111111..2222222", url)
}

func TestDescription(t *testing.T) {
	webrtc := Versions{
		Dependency: cmd.Dependency{Name: "WebRTC"},
		Current:    CommitInfo{Sequence: 100, Commit: webrtcOld, RepoURL: "https://webrtc.example/webrtc.git"},
		Latest:     CommitInfo{Sequence: 105, Commit: webrtcNew, RepoURL: "https://webrtc.example/webrtc.git"},
	}
	jingle := Versions{
		Dependency: cmd.Dependency{Name: "Libjingle"},
		Current:    CommitInfo{Sequence: 300, Commit: jingleOld, RepoURL: "https://webrtc.example/talk.git"},
		Latest:     CommitInfo{Sequence: 302, Commit: jingleNew, RepoURL: "https://webrtc.example/talk.git"},
	}
	unchanged := jingle
	unchanged.Latest = unchanged.Current
	unchangedWebRTC := webrtc
	unchangedWebRTC.Latest = unchangedWebRTC.Current

	tests := []struct {
		name      string
		versions  []Versions
		reviewers []string
		expected  string
	}{
		{
			name:      "both changed",
			versions:  []Versions{webrtc, jingle},
			reviewers: []string{"a@webrtc.org", "b@webrtc.org"},
			expected: "Roll WebRTC 100:105, Libjingle 300:302\n\n" +
				"WebRTC 100:105\nChanges: https://webrtc.example/webrtc.git/+log/1111111..2222222\n" +
				"\n" +
				"Libjingle 300:302\nChanges: https://webrtc.example/talk.git/+log/3333333..4444444\n" +
				"\nTBR=a@webrtc.org,b@webrtc.org",
		},
		{
			name:     "only the first dependency changed",
			versions: []Versions{webrtc, unchanged},
			expected: "Roll WebRTC 100:105\n\n" +
				"WebRTC 100:105\nChanges: https://webrtc.example/webrtc.git/+log/1111111..2222222\n" +
				"\n" +
				"\nTBR=",
		},
		{
			name:     "only the last dependency changed",
			versions: []Versions{unchangedWebRTC, jingle},
			expected: "Roll Libjingle 300:302\n\n" +
				"Libjingle 300:302\nChanges: https://webrtc.example/talk.git/+log/3333333..4444444\n" +
				"\nTBR=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Description(tt.versions, tt.reviewers))
		})
	}
}
