package leads

import (
	"crypto/rand"
	"strconv"
	"time"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewContactID returns contact_<epoch-ms>_<6 lowercase alphanumerics>.
// Ids are for correlation only and carry no security meaning.
func NewContactID(now time.Time) string {
	return NewID("contact", now, 6)
}

// NewLeadID returns lead_<epoch-ms>_<9 lowercase alphanumerics>.
func NewLeadID(now time.Time) string {
	return NewID("lead", now, 9)
}

// NewID joins prefix, the millisecond timestamp and n random characters.
func NewID(prefix string, now time.Time, n int) string {
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomSuffix(n)
}

// randomSuffix draws from crypto/rand with rejection sampling so every
// character of the alphabet is equally likely.
func randomSuffix(n int) string {
	const limit = 256 - 256%len(idAlphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		// crypto/rand.Read never fails on supported platforms.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
