package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSetClockFreezesNow(t *testing.T) {
	frozen := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	assert.Equal(t, frozen, Now())
	assert.Equal(t, frozen, Now())
}

func TestSetClockNilResetsToRealTime(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
	SetClock(nil)

	assert.WithinDuration(t, time.Now(), Now(), time.Second)
}
