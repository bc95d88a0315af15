package api

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunCache_EvictsOldestWhenFull(t *testing.T) {
	// GIVEN: A cache holding two outcomes at capacity
	// WHEN: Adding a third
	// THEN: The oldest entry expires; the newer ones survive

	cache := newRunCache(2)

	for i := 1; i <= 3; i++ {
		cache.Put(&RunOutcome{ID: fmt.Sprintf("run-%d", i)})
	}

	assert.Nil(t, cache.Get("run-1"))
	assert.NotNil(t, cache.Get("run-2"))
	assert.NotNil(t, cache.Get("run-3"))
}

func TestRunCache_MissReturnsNil(t *testing.T) {
	// GIVEN: An empty cache
	// WHEN: Fetching any token
	// THEN: nil

	cache := newRunCache(0)
	assert.Nil(t, cache.Get("nope"))
}
