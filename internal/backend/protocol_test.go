package backend

import (
	"testing"

	"porter/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	msg, ok := parseLine(`  {"event":"work","payload":[1,5]}  `)
	require.True(t, ok)
	assert.Equal(t, "work", msg.Event)

	_, ok = parseLine("converted photo1.png")
	assert.False(t, ok)

	_, ok = parseLine(`{"not":"a message"}`)
	assert.False(t, ok)

	_, ok = parseLine(`{"event":`)
	assert.False(t, ok)
}

func TestDecodeProgress(t *testing.T) {
	p, err := decodeProgress([]interface{}{float64(3), float64(5)})
	require.NoError(t, err)
	assert.Equal(t, events.WorkProgress{Done: 3, Total: 5}, p)

	p, err = decodeProgress(map[string]interface{}{"done": "4", "total": 5})
	require.NoError(t, err)
	assert.Equal(t, events.WorkProgress{Done: 4, Total: 5}, p)

	_, err = decodeProgress([]interface{}{float64(1)})
	assert.Error(t, err)

	_, err = decodeProgress("1/5")
	assert.Error(t, err)
}

func TestDecodeSkip(t *testing.T) {
	s, err := decodeSkip("photo2.png")
	require.NoError(t, err)
	assert.Equal(t, "photo2.png", s.Item)

	s, err = decodeSkip(float64(7))
	require.NoError(t, err)
	assert.Equal(t, "7", s.Item)

	s, err = decodeSkip(map[string]interface{}{"item": "cover.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "cover.jpg", s.Item)
}

func TestDecodeResultAndError(t *testing.T) {
	r, err := decodeResult("The operation is done.")
	require.NoError(t, err)
	assert.Equal(t, Result{Text: "The operation is done."}, r)

	r, err = decodeResult(map[string]interface{}{"text": "half done", "failed": true})
	require.NoError(t, err)
	assert.True(t, r.Failed)

	cmdErr := decodeError(CreateSite, map[string]interface{}{"kind": "declarationFile", "message": "no such file"})
	assert.Equal(t, KindDeclaration, cmdErr.Kind)
	assert.Equal(t, "no such file", cmdErr.Message)

	cmdErr = decodeError(CreateSite, map[string]interface{}{"message": "bad output path"})
	assert.Equal(t, KindOutput, cmdErr.Kind)

	cmdErr = decodeError(CreateSite, "invalid args `inputFile`")
	assert.Equal(t, KindInput, cmdErr.Kind)
}
