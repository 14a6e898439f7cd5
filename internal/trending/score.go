// Package trending computes the engagement-weighted ranking score for posts.
package trending

import "time"

// Score weights. Engagement dominates; the decay term downranks old posts
// without zeroing them out.
const (
	LikeWeight    = 3.0
	CommentWeight = 2.0
	ViewWeight    = 0.1
	HourlyDecay   = 0.01
)

// CommentDeleteDecrement is how much a post's comment_count drops when a
// comment subtree is deleted. The historical behavior decrements by one
// regardless of subtree size; set to the subtree size at the call site to
// switch policies.
const CommentDeleteDecrement = 1

// Score computes the trending score for a post from its engagement
// counters and creation time, evaluated at now.
func Score(likes, comments, views int, createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return float64(likes)*LikeWeight +
		float64(comments)*CommentWeight +
		float64(views)*ViewWeight -
		hours*HourlyDecay
}
