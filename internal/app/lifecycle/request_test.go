package lifecycle

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_NilQuery(t *testing.T) {
	req := NewRequest(nil)
	require.NotNil(t, req.Query)
	assert.Empty(t, req.Query.Get("anything"))
}

func TestRequest_RunDeferred_Order(t *testing.T) {
	req := NewRequest(url.Values{})
	var calls []int
	req.AtEnd(func(context.Context) { calls = append(calls, 1) })
	req.AtEnd(nil)
	req.AtEnd(func(context.Context) { calls = append(calls, 2) })

	req.RunDeferred(context.Background())
	assert.Equal(t, []int{1, 2}, calls)

	// Second run must not repeat the work.
	req.RunDeferred(context.Background())
	assert.Equal(t, []int{1, 2}, calls)
}
