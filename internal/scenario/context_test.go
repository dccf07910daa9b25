package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strikesim/strikesim/pkg/core"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	s := ctx.Get()
	assert.Equal(t, "No scenario loaded", s.Name)
	assert.Equal(t, int64(0), ctx.Tick())
}

func TestContext_SetResetsTick(t *testing.T) {
	ctx := NewContext()

	ctx.AdvanceTick()
	ctx.AdvanceTick()
	assert.Equal(t, int64(2), ctx.Tick())

	ctx.Set(&core.Scenario{Name: "strait-exercise"})
	assert.Equal(t, "strait-exercise", ctx.Get().Name)
	assert.Equal(t, int64(0), ctx.Tick())
}

func TestContext_AdvanceTick(t *testing.T) {
	ctx := NewContext()

	assert.Equal(t, int64(1), ctx.AdvanceTick())
	assert.Equal(t, int64(2), ctx.AdvanceTick())
	assert.Equal(t, int64(2), ctx.Tick())
}
