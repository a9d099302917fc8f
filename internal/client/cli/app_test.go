package cli

import (
	"bytes"
	"testing"

	"github.com/dmitrijs2005/spendsync/internal/client/services"
	"github.com/stretchr/testify/require"
)

func TestIsLoggedIn(t *testing.T) {
	app := &App{}
	require.False(t, app.isLoggedIn(), "no master key means logged out")

	app.identity = services.Identity{MasterKey: []byte{1, 2, 3}}
	require.True(t, app.isLoggedIn())
}

func TestSetMode_ChangesAndReportsOnce(t *testing.T) {
	var buf bytes.Buffer
	app := &App{out: &buf}

	app.setMode(ModeOnline)
	require.Equal(t, ModeOnline, app.Mode())
	require.Contains(t, buf.String(), "Switched to online mode")

	buf.Reset()
	app.setMode(ModeOnline)
	require.Empty(t, buf.String(), "no output when the mode does not change")

	app.setMode(ModeOffline)
	require.Equal(t, ModeOffline, app.Mode())
	require.Contains(t, buf.String(), "Switched to offline mode")
}

func TestGetStatus(t *testing.T) {
	app := &App{out: &bytes.Buffer{}}
	require.Equal(t, "", app.getStatus())

	app.setMode(ModeOffline)
	require.Equal(t, "(offline)", app.getStatus())

	app.identity = services.Identity{Username: "alice"}
	require.Equal(t, "(alice offline)", app.getStatus())
}
