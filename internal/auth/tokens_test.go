package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	// MinCost keeps the test fast.
	ts := NewTokenStore(4)

	token, err := ts.Issue("match-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, ts.Verify("match-1", token))
	assert.False(t, ts.Verify("match-1", "wrong"))
	assert.False(t, ts.Verify("match-2", token))
}

func TestRevoke(t *testing.T) {
	ts := NewTokenStore(4)

	token, err := ts.Issue("match-1")
	require.NoError(t, err)

	ts.Revoke("match-1")
	assert.False(t, ts.Verify("match-1", token))
}

func TestIssueReplacesPreviousToken(t *testing.T) {
	ts := NewTokenStore(4)

	first, err := ts.Issue("match-1")
	require.NoError(t, err)
	second, err := ts.Issue("match-1")
	require.NoError(t, err)

	assert.False(t, ts.Verify("match-1", first))
	assert.True(t, ts.Verify("match-1", second))
}
