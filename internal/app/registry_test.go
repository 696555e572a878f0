package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Keystroke/internal/app"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/core/coretest"
	"github.com/dkeye/Keystroke/internal/domain"
)

func TestRegistry_Identify(t *testing.T) {
	t.Run("binds an identity once", func(t *testing.T) {
		// Given
		reg := app.NewRegistry()
		reg.BindSignal("s1", coretest.NewRecorderConn(), nil, "")

		// When
		require.NoError(t, reg.Identify("s1", "a"))
		err := reg.Identify("s1", "b")

		// Then
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		uid, ok := reg.UserOf("s1")
		assert.True(t, ok)
		assert.Equal(t, domain.UserID("a"), uid)
	})

	t.Run("unknown session", func(t *testing.T) {
		err := app.NewRegistry().Identify("nope", "a")
		assert.ErrorIs(t, err, app.ErrUnknownSession)
	})
}

func TestRegistry_ActiveUsers(t *testing.T) {
	// Given
	reg := app.NewRegistry()
	for _, sid := range []core.SessionID{"s1", "s2", "s3", "s4"} {
		reg.BindSignal(sid, coretest.NewRecorderConn(), nil, "")
	}
	require.NoError(t, reg.Identify("s1", "a"))
	require.NoError(t, reg.Identify("s2", "a"))
	require.NoError(t, reg.Identify("s3", "b"))

	// Then
	assert.Equal(t, 2, reg.ActiveUsers())

	// When
	assert.True(t, reg.Forget("s3", "b"))
	assert.False(t, reg.Forget("s1", "zzz"))
	reg.Unbind("s2")

	// Then
	assert.Equal(t, 1, reg.ActiveUsers())
	assert.Len(t, reg.Sessions(), 3)
}

func TestRegistry_Cancel(t *testing.T) {
	// Given
	reg := app.NewRegistry()
	cancelled := false
	reg.BindSignal("s1", coretest.NewRecorderConn(), func() { cancelled = true }, "mod")

	// Then
	assert.True(t, reg.Cancel("s1"))
	assert.True(t, cancelled)
	assert.False(t, reg.Cancel("s2"))
	assert.Equal(t, domain.UserID("mod"), reg.ModProof("s1"))
}

func TestSimplePolicy(t *testing.T) {
	p := app.SimplePolicy{}
	assert.Equal(t, app.KickMember, p.OnBackPressure("s", core.ErrBackpressure))
	assert.Equal(t, app.NoAction, p.OnBackPressure("s", core.ErrConnClosed))
}

func TestRegistry_CanIdentify(t *testing.T) {
	// Given
	reg := app.NewRegistry()
	reg.BindSignal("s1", coretest.NewRecorderConn(), nil, "")

	// Then
	assert.NoError(t, reg.CanIdentify("s1", "alice"))
	_, bound := reg.UserOf("s1")
	assert.False(t, bound, "checking must not bind")
	assert.ErrorIs(t, reg.CanIdentify("nope", "alice"), app.ErrUnknownSession)

	// When
	require.NoError(t, reg.Identify("s1", "alice"))

	// Then
	assert.NoError(t, reg.CanIdentify("s1", "alice"))
	assert.ErrorIs(t, reg.CanIdentify("s1", "bob"), domain.ErrInvalidInput)
}
