package savestore

import (
	"context"
	"testing"
	"time"

	"story-engine/internal/traversal"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	state := traversal.State{
		ChapterID:       "chapter1",
		NodeID:          "c1_2",
		CollectedTokens: map[string]bool{"good_word": true, "good_deed": true, "good_heart": false},
		Scores:          map[string]int{"good_deed": 5, "good_word": -1},
	}
	rec := FromState(state, ts)

	data, err := Encode(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"chapterId": "chapter1",
		"nodeId": "c1_2",
		"collectedTokens": ["good_deed", "good_word"],
		"scores": {"good_deed": 5, "good_word": -1},
		"timestamp": "2025-03-01T12:30:00Z"
	}`, string(data))

	got, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	want := state.Clone()
	if diff := cmp.Diff(want, got.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_LegacyFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Record
	}{
		{
			name: "token flags object",
			data: `{"chapterId":"prologue","nodeId":"p4","collectedTokens":{"good_deed":true,"good_word":false},"scores":{"good_deed":3},"timestamp":"2024-11-02T08:00:00.000Z"}`,
			want: Record{
				ChapterID:       "prologue",
				NodeID:          "p4",
				CollectedTokens: []string{"good_deed"},
				Scores:          map[string]int{"good_deed": 3},
				Timestamp:       time.Date(2024, 11, 2, 8, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "browser save keys",
			data: `{"currentChapter":"chapter1","currentNode":"c1_1","collectedGems":{"good_heart":true},"playerScore":{"good_heart":2}}`,
			want: Record{
				ChapterID:       "chapter1",
				NodeID:          "c1_1",
				CollectedTokens: []string{"good_heart"},
				Scores:          map[string]int{"good_heart": 2},
			},
		},
		{
			name: "no tokens or scores",
			data: `{"chapterId":"prologue","nodeId":"p1","collectedTokens":null}`,
			want: Record{
				ChapterID:       "prologue",
				NodeID:          "p1",
				CollectedTokens: []string{},
				Scores:          map[string]int{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Corrupt(t *testing.T) {
	for name, data := range map[string]string{
		"not json":        `{"chapterId":`,
		"missing node":    `{"chapterId":"prologue"}`,
		"tokens scalar":   `{"chapterId":"prologue","nodeId":"p1","collectedTokens":7}`,
		"scores wrong":    `{"chapterId":"prologue","nodeId":"p1","scores":["x"]}`,
		"empty document":  ``,
		"bad token entry": `{"chapterId":"prologue","nodeId":"p1","collectedTokens":[1]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(data))
			assert.ErrorIs(t, err, ErrCorruptSave)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Latest(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := store.Save(ctx, "alice", Record{ChapterID: "prologue", NodeID: "p2", Scores: map[string]int{}})
	require.NoError(t, err)
	second, err := store.Save(ctx, "alice", Record{ChapterID: "prologue", NodeID: "p3", Scores: map[string]int{"good_deed": 2}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	latest, err := store.Latest(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, second, latest)

	rec, err := store.Load(ctx, "alice", first)
	require.NoError(t, err)
	assert.Equal(t, "p2", rec.NodeID)

	_, err = store.Load(ctx, "bob", first)
	assert.ErrorIs(t, err, ErrNotFound, "saves are scoped to their owner")

	store.Put("alice", "broken", []byte(`{"chapterId":`))
	_, err = store.Load(ctx, "alice", "broken")
	assert.ErrorIs(t, err, ErrCorruptSave)
}
