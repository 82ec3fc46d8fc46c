package shots_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lijiannan828-oss/yvideo-factory/internal/shots"
)

func TestNormalize(t *testing.T) {
	t.Run("Top-level array passes through in order", func(t *testing.T) {
		doc := []byte(`[{"shot_id":"S001","action":"run","visual":"a"},{"shot_id":"S002","visual":"b"}]`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, json.RawMessage(`"S001"`), records[0].ShotID)
		assert.Equal(t, "run", records[0].Action)
		assert.Equal(t, "a", records[0].Visual)
		assert.Equal(t, json.RawMessage(`"S002"`), records[1].ShotID)
		assert.Equal(t, "", records[1].Action)
		assert.Equal(t, "b", records[1].Visual)
	})

	t.Run("Nested result.pictures selected when top level is not an array", func(t *testing.T) {
		doc := []byte(`{"result":{"pictures":[{"shot_id":1,"visual":"x"}]}}`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, json.RawMessage(`1`), records[0].ShotID)
	})

	t.Run("Pictures wins over shots", func(t *testing.T) {
		doc := []byte(`{"shots":[{"shot_id":"from-shots"}],"pictures":[{"shot_id":"from-pictures"}]}`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, json.RawMessage(`"from-pictures"`), records[0].ShotID)
	})

	t.Run("Wrapper candidates tried in order", func(t *testing.T) {
		for _, doc := range []string{
			`{"pictures":[{"shot_id":1}]}`,
			`{"result":{"pictures":[{"shot_id":1}]}}`,
			`{"data":{"pictures":[{"shot_id":1}]}}`,
			`{"payload":{"pictures":[{"shot_id":1}]}}`,
			`{"shots":[{"shot_id":1}]}`,
			`{"result":{"shots":[{"shot_id":1}]}}`,
		} {
			records, err := shots.Normalize([]byte(doc))
			require.NoError(t, err, doc)
			assert.Len(t, records, 1, doc)
		}
	})

	t.Run("Non-array candidate is skipped", func(t *testing.T) {
		// round1's own response carries a numeric "shots" field; it must not
		// be mistaken for the shot array.
		doc := []byte(`{"shots":5,"result":{"shots":[{"shot_id":1}]}}`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("Projection defaults", func(t *testing.T) {
		doc := []byte(`[{"shot_id":7,"visual":"x"}]`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, json.RawMessage(`7`), records[0].ShotID)
		assert.Equal(t, "", records[0].Action)
		assert.Equal(t, "x", records[0].Visual)
	})

	t.Run("Visual preferred over text, text over prompt", func(t *testing.T) {
		doc := []byte(`[
			{"shot_id":1,"visual":"v","text":"t","prompt":"p"},
			{"shot_id":2,"text":"t","prompt":"p"},
			{"shot_id":3,"prompt":"p"},
			{"shot_id":4}
		]`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "v", records[0].Visual)
		assert.Equal(t, "t", records[1].Visual)
		assert.Equal(t, "p", records[2].Visual)
		assert.Equal(t, "", records[3].Visual)
	})

	t.Run("Missing shot_id yields an unidentifiable record, not an error", func(t *testing.T) {
		doc := []byte(`[{"action":"look","visual":"x"}]`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Nil(t, records[0].ShotID)
	})

	t.Run("Empty artifacts abort", func(t *testing.T) {
		for _, doc := range []string{`[]`, `{"pictures":[]}`} {
			_, err := shots.Normalize([]byte(doc))
			assert.ErrorIs(t, err, shots.ErrNoShots, doc)
		}
	})

	t.Run("No recognizable array aborts", func(t *testing.T) {
		for _, doc := range []string{`{"frames":[1,2]}`, `"just a string"`, `not json`} {
			_, err := shots.Normalize([]byte(doc))
			assert.ErrorIs(t, err, shots.ErrNoShots, doc)
		}
	})

	t.Run("Non-object elements are dropped", func(t *testing.T) {
		doc := []byte(`[{"shot_id":1},"stray",42]`)

		records, err := shots.Normalize(doc)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestRecordMarshal(t *testing.T) {
	t.Run("Round2 wire shape", func(t *testing.T) {
		records, err := shots.Normalize([]byte(`[{"shot_id":7,"visual":"x","extra":"dropped"}]`))
		require.NoError(t, err)

		data, err := json.Marshal(records)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"shot_id":7,"action":"","visual":"x"}]`, string(data))
	})

	t.Run("Absent shot_id is omitted", func(t *testing.T) {
		records, err := shots.Normalize([]byte(`[{"visual":"x"}]`))
		require.NoError(t, err)

		data, err := json.Marshal(records)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"action":"","visual":"x"}]`, string(data))
	})
}
