package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
)

type fakeConn struct {
	id     int
	closed bool
}

func TestConnectWithRetry_ClosesFailedClients(t *testing.T) {
	var opened []*fakeConn
	open := func() (*fakeConn, error) {
		c := &fakeConn{id: len(opened) + 1}
		opened = append(opened, c)
		return c, nil
	}
	ping := func(_ context.Context, c *fakeConn) error {
		if c.id < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	got, err := connectWithRetry(context.Background(), open, ping, func(c *fakeConn) { c.closed = true },
		5, time.Millisecond, logger.NewTestLogger(t), "fake connection")
	require.NoError(t, err)

	require.Len(t, opened, 3)
	assert.Same(t, opened[2], got)
	assert.True(t, opened[0].closed)
	assert.True(t, opened[1].closed)
	assert.False(t, got.closed)
}

func TestConnectWithRetry_GivesUp(t *testing.T) {
	var opened []*fakeConn
	open := func() (*fakeConn, error) {
		c := &fakeConn{}
		opened = append(opened, c)
		return c, nil
	}
	ping := func(context.Context, *fakeConn) error { return errors.New("down") }

	got, err := connectWithRetry(context.Background(), open, ping, func(c *fakeConn) { c.closed = true },
		3, time.Millisecond, logger.NewNoOpLogger(), "fake connection")
	require.Error(t, err)
	assert.Nil(t, got)

	require.Len(t, opened, 3)
	for _, c := range opened {
		assert.True(t, c.closed)
	}
}

func TestConnectWithRetry_OpenErrorIsRetried(t *testing.T) {
	calls := 0
	open := func() (*fakeConn, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("bad dsn")
		}
		return &fakeConn{id: calls}, nil
	}

	got, err := connectWithRetry(context.Background(), open,
		func(context.Context, *fakeConn) error { return nil },
		func(*fakeConn) { t.Fatal("healthy client closed") },
		3, time.Millisecond, logger.NewNoOpLogger(), "fake connection")
	require.NoError(t, err)
	assert.Equal(t, 2, got.id)
}
