package storage

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRuleNotifier_DeliversToOtherReplicas(t *testing.T) {
	_, client := setupTestRedis(t)

	const channel = "routing:rules:changed"
	publisher := NewRedisRuleNotifier(client.Client(), channel)
	subscriber := NewRedisRuleNotifier(client.Client(), channel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var selfCalls, peerCalls atomic.Int32
	selfReady := make(chan struct{})
	peerReady := make(chan struct{})
	go func() {
		_ = publisher.Subscribe(ctx, selfReady, func(context.Context) { selfCalls.Add(1) })
	}()
	go func() {
		_ = subscriber.Subscribe(ctx, peerReady, func(context.Context) { peerCalls.Add(1) })
	}()
	<-selfReady
	<-peerReady

	require.NoError(t, publisher.NotifyRulesChanged(ctx))

	assert.Eventually(t, func() bool { return peerCalls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), selfCalls.Load(), "a replica must ignore its own announcements")
}

func TestRedisRuleNotifier_StopsOnCancel(t *testing.T) {
	_, client := setupTestRedis(t)
	notifier := NewRedisRuleNotifier(client.Client(), "rules")

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- notifier.Subscribe(ctx, ready, func(context.Context) {}) }()

	<-ready
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}
