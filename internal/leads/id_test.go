package leads

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactIDPattern = regexp.MustCompile(`^contact_\d+_[a-z0-9]{6}$`)

func TestNewContactID_Format(t *testing.T) {
	now := time.UnixMilli(1718020800123)
	id := NewContactID(now)

	assert.Regexp(t, contactIDPattern, id)
	assert.Contains(t, id, "_1718020800123_")
}

func TestNewLeadID_Format(t *testing.T) {
	id := NewLeadID(time.UnixMilli(42))
	assert.Regexp(t, `^lead_42_[a-z0-9]{9}$`, id)
}

func TestNewContactID_NoCollisions(t *testing.T) {
	const n = 10000
	now := time.Now()

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, n/8)
			for i := 0; i < n/8; i++ {
				local = append(local, NewContactID(now))
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
}

func TestRandomSuffix_Alphabet(t *testing.T) {
	s := randomSuffix(512)
	require.Len(t, s, 512)
	assert.Regexp(t, `^[a-z0-9]+$`, s)
}
