package audit_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/ghlink/internal/audit"
)

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	audit.SetOutput(&buf)
	t.Cleanup(func() { audit.SetOutput(os.Stdout) })

	audit.Log(audit.ActionRelinked, "acct-1", "202", "previous=101", true, nil)
	audit.Log(audit.ActionLinkDenied, "acct-1", "999", "", false, errors.New("not owned"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first struct {
		Event audit.Event `json:"audit_event"`
	}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, audit.ActionRelinked, first.Event.Action)
	assert.Equal(t, "202", first.Event.Target)
	assert.Equal(t, "previous=101", first.Event.Details)
	assert.True(t, first.Event.Success)
	assert.False(t, first.Event.Timestamp.IsZero())

	var second struct {
		Event audit.Event `json:"audit_event"`
	}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.False(t, second.Event.Success)
	assert.Equal(t, "not owned", second.Event.Error)
}
