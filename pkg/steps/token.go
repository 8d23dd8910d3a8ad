package steps

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RandomMarker is replaced by a unique token in typed values.
const RandomMarker = "<<rnd>>"

// tokenSource hashes the current time with a run-wide counter so two
// tokens never collide, even within one clock tick.
type tokenSource struct {
	mu  sync.Mutex
	seq uint64
	now func() time.Time
}

func newTokenSource() *tokenSource {
	return &tokenSource{now: time.Now}
}

// Next returns a new 32-character hex token.
func (t *tokenSource) Next() string {
	t.mu.Lock()
	t.seq++
	seed := t.now().Format(time.RFC3339Nano) + "#" + strconv.FormatUint(t.seq, 10)
	t.mu.Unlock()

	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Substitute replaces every RandomMarker in value with one fresh token.
func (t *tokenSource) Substitute(value string) string {
	if !strings.Contains(value, RandomMarker) {
		return value
	}
	return strings.ReplaceAll(value, RandomMarker, t.Next())
}
