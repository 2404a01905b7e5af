package judgment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"story-engine/internal/story"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRemote struct {
	calls    atomic.Int32
	complete func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.complete(ctx, prompt)
}

func replying(raw string, err error) *fakeRemote {
	return &fakeRemote{complete: func(context.Context, string) (string, error) { return raw, err }}
}

func newTestEngine(remote RemoteClassifier, cfg Config) (*Engine, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())
	local := NewLocalClassifier(story.DefaultExplanations, zap.NewNop())
	if remote == nil {
		return NewEngine(local, nil, cfg, metrics, zap.NewNop()), metrics
	}
	return NewEngine(local, remote, cfg, metrics, zap.NewNop()), metrics
}

func TestEngine_RemoteVerdict(t *testing.T) {
	remote := replying("```json\n{\"success\": true, \"analysis\": \"Lovely.\", \"score\": 8}\n```", nil)
	engine, metrics := newTestEngine(remote, Config{})

	res := engine.Classify(context.Background(), testChallenge(t), "hmm")

	assert.True(t, res.Passed)
	assert.Equal(t, ProvenanceRemote, res.Provenance)
	assert.Equal(t, "Lovely.", res.Explanation)
	assert.Equal(t, 8, res.Score)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.verdicts.WithLabelValues("remote", "pass")))
}

func TestEngine_FallsBackOnRemoteError(t *testing.T) {
	engine, metrics := newTestEngine(replying("", errors.New("status 500")), Config{})

	res := engine.Classify(context.Background(), testChallenge(t), "I will help")

	assert.True(t, res.Passed)
	assert.Equal(t, ProvenanceLocal, res.Provenance)
	assert.Equal(t, story.DefaultExplanations.Positive, res.Explanation)
	assert.Equal(t, WarningRemoteFailed, res.Warning)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.remoteFailures.WithLabelValues("fake", "transport")))
}

func TestEngine_FallsBackOnMalformedReply(t *testing.T) {
	engine, metrics := newTestEngine(replying("I think it is fine", nil), Config{})

	res := engine.Classify(context.Background(), testChallenge(t), "ignore them")

	assert.False(t, res.Passed)
	assert.Equal(t, ProvenanceLocal, res.Provenance)
	assert.Equal(t, story.DefaultExplanations.Negative, res.Explanation)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.remoteFailures.WithLabelValues("fake", "malformed")))
}

func TestEngine_TimeoutFallsBack(t *testing.T) {
	remote := &fakeRemote{complete: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	engine, metrics := newTestEngine(remote, Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	res := engine.Classify(context.Background(), testChallenge(t), "share")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, ProvenanceLocal, res.Provenance)
	assert.True(t, res.Passed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.remoteFailures.WithLabelValues("fake", "timeout")))
}

func TestEngine_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	remote := replying("", errors.New("connection refused"))
	engine, _ := newTestEngine(remote, Config{BreakerMaxFailures: 2, BreakerCooldown: time.Hour})
	c := testChallenge(t)

	for i := 0; i < 2; i++ {
		res := engine.Classify(context.Background(), c, "help")
		require.Equal(t, WarningRemoteFailed, res.Warning)
	}
	res := engine.Classify(context.Background(), c, "help")

	assert.Equal(t, int32(2), remote.calls.Load(), "open breaker must not reach the backend")
	assert.Equal(t, WarningRemotePaused, res.Warning)
	assert.Equal(t, ProvenanceLocal, res.Provenance)
}

func TestEngine_RemoteToggle(t *testing.T) {
	remote := replying(`{"success": true, "analysis": "ok"}`, nil)
	engine, _ := newTestEngine(remote, Config{})
	require.True(t, engine.RemoteEnabled())

	engine.SetRemoteEnabled(false)
	res := engine.Classify(context.Background(), testChallenge(t), "hmm")

	assert.Equal(t, int32(0), remote.calls.Load())
	assert.Equal(t, ProvenanceLocal, res.Provenance)
	assert.Empty(t, res.Warning)

	engine.SetRemoteEnabled(true)
	res = engine.Classify(context.Background(), testChallenge(t), "hmm")
	assert.Equal(t, ProvenanceRemote, res.Provenance)
}

func TestEngine_LocalOnly(t *testing.T) {
	engine, _ := newTestEngine(nil, Config{})
	engine.SetRemoteEnabled(true)

	assert.False(t, engine.RemoteEnabled())
	res := engine.Classify(context.Background(), testChallenge(t), "hmm")
	assert.Equal(t, ProvenanceLocal, res.Provenance)
	assert.Equal(t, story.DefaultExplanations.Ambiguous, res.Explanation)
}

func TestNewRemoteClassifier(t *testing.T) {
	ctx := context.Background()

	remote, err := NewRemoteClassifier(ctx, BackendConfig{Type: "none"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, remote)

	_, err = NewRemoteClassifier(ctx, BackendConfig{Type: "carrier-pigeon"}, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewRemoteClassifier(ctx, BackendConfig{Type: BackendOpenAI}, nil, zap.NewNop())
	assert.Error(t, err, "model is required")

	_, err = NewRemoteClassifier(ctx, BackendConfig{Type: BackendGemini}, nil, zap.NewNop())
	assert.Error(t, err, "api key is required")

	remote, err = NewRemoteClassifier(ctx, BackendConfig{Type: "Ollama", Model: "llama3"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, remote.Name())
}
