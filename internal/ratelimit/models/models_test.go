package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryAfter(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 30, (&Result{ResetAt: now.Add(30 * time.Second)}).RetryAfter(now))
	assert.Equal(t, 1, (&Result{ResetAt: now.Add(200 * time.Millisecond)}).RetryAfter(now))
	assert.Equal(t, 1, (&Result{ResetAt: now.Add(-time.Second)}).RetryAfter(now))
}
