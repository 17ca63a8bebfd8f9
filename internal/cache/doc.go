// Package cache keeps recent speech engine replies in memory so that a
// repeated request for the same prompt and voice does not reach the network.
package cache
