package service

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomCode returns n uppercase alphanumeric characters. No persistence
// level collision check happens here; uniqueness constraints plus retry at
// the storage layer handle the (rare) clash.
func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// submitSuffix builds the fresh random+timestamp suffix appended to the
// student code on every submission insert attempt.
func submitSuffix(now time.Time) string {
	return randomCode(3) + strconv.FormatInt(now.UnixMilli()%100000, 36)
}
