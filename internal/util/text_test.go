package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name     string
		title    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"punctuation collapses", "Go 1.24: What's New?", "go-1-24-what-s-new"},
		{"leading and trailing junk", "  --Hello--  ", "hello"},
		{"already a slug", "already-a-slug", "already-a-slug"},
		{"unicode stripped", "Caffè Latte ☕", "caff-latte"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Slugify(tc.title))
		})
	}
}

func TestSlugifyLength(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "word "
	}
	slug := Slugify(long)
	assert.LessOrEqual(t, len(slug), 100)
	assert.NotEqual(t, byte('-'), slug[len(slug)-1])
}

func TestMakeExcerpt(t *testing.T) {
	short := "A short post."
	assert.Equal(t, short, MakeExcerpt(short, 200))

	long := "The quick brown fox jumps over the lazy dog and keeps on running far away"
	excerpt := MakeExcerpt(long, 40)
	assert.LessOrEqual(t, len(excerpt), 44) // cut point plus ellipsis
	assert.Contains(t, excerpt, "…")
}

func TestExtractMentions(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected []string
	}{
		{"single mention", "Nice writeup @gopher !", []string{"gopher"}},
		{"multiple mentions", "@alice and @bobross should see this", []string{"alice", "bobross"}},
		{"deduplicated", "@alice hey @alice", []string{"alice"}},
		{"punctuation trimmed", "Thanks @reviewer!", []string{"reviewer"}},
		{"no mentions", "plain text", []string(nil)},
		{"too short", "@ab is too short", []string(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractMentions(tc.content))
		})
	}
}
