package discord

import "testing"

func TestSplitInvocation(t *testing.T) {
	const botID = "8000001"

	tests := []struct {
		content  string
		prefix   string
		wantName string
		wantRest string
		wantOK   bool
	}{
		{"!ping", "!", "ping", "", true},
		{"  !ping", "!", "ping", "", true},
		{"!say  hi ", "!", "say", " hi ", true},
		{"!say\thi", "!", "say", "hi", true},
		{"!! ping", "!!", "ping", "", true},
		{"<@8000001> avatar alice", "!", "avatar", "alice", true},
		{"<@!8000001> avatar", "!", "avatar", "", true},
		{"<@8000002> avatar", "!", "", "", false},
		{"hello", "!", "", "", false},
		{"!", "!", "", "", false},
		{"!   ", "!", "", "", false},
		{"ping", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			name, rest, ok := splitInvocation(tt.content, tt.prefix, botID)
			if ok != tt.wantOK || name != tt.wantName || rest != tt.wantRest {
				t.Errorf("splitInvocation(%q) = %q, %q, %v; want %q, %q, %v",
					tt.content, name, rest, ok, tt.wantName, tt.wantRest, tt.wantOK)
			}
		})
	}
}
