package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/swordforge/stylusplugin/app"
	"github.com/swordforge/stylusplugin/app/mock_app"
)

func TestAddPlugin(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := app.New()

	p1 := mock_app.NewMockPlugin(ctrl)
	p1.EXPECT().Name().Return("p1").AnyTimes()
	p1.EXPECT().Build(a).Times(1)

	p2 := mock_app.NewMockPlugin(ctrl)
	p2.EXPECT().Name().Return("p2").AnyTimes()
	p2.EXPECT().Build(a).Times(1)

	a.AddPlugin(p1).AddPlugin(p2)
	assert.Equal(t, []string{"p1", "p2"}, a.PluginNames())
	assert.Equal(t, p2, a.Plugin("p2"))
	assert.Nil(t, a.Plugin("p3"))

	dup := mock_app.NewMockPlugin(ctrl)
	dup.EXPECT().Name().Return("p1").AnyTimes()
	assert.Panics(t, func() { a.AddPlugin(dup) })
}
