package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionAnswersKey returns the cache key for a session's autosaved answers.
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// TestMonitorChannel returns the Redis PubSub channel name for a test's
// live monitor stream (violations and submissions).
func (r *CacheKeyStruct) TestMonitorChannel(testID string) string {
	return fmt.Sprintf("test:%s:monitor", testID)
}

var CacheKey = NewCacheKeyStruct()
