package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultWidth, c.Width)
	assert.Equal(t, DefaultHeight, c.Height)
	assert.Equal(t, LayoutUS, c.Layout)
	assert.Equal(t, DefaultClientName, c.ClientName)
}

func TestValidate_RequiresHost(t *testing.T) {
	c := New()
	c.User = "alice"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestValidate_RequiresUserUnlessBlank(t *testing.T) {
	c := New()
	c.Host = "example.com"
	require.Error(t, c.Validate())

	c.BlankCreds = true
	assert.NoError(t, c.Validate())
}

func TestValidate_BadPort(t *testing.T) {
	c := New()
	c.Host = "example.com"
	c.User = "alice"
	c.Port = 70000
	require.Error(t, c.Validate())
}

func TestValidate_BadLayout(t *testing.T) {
	c := New()
	c.Host = "example.com"
	c.User = "alice"
	c.Layout = "de"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported keyboard layout")
}

func TestValidate_BadHashLength(t *testing.T) {
	c := New()
	c.Host = "example.com"
	c.User = "alice"
	c.Hash = "abcd"
	require.Error(t, c.Validate())
}

func TestValidate_ValidHash(t *testing.T) {
	c := New()
	c.Host = "example.com"
	c.User = "alice"
	c.Hash = "00000000000000000000000000000000"[:32]
	assert.NoError(t, c.Validate())
}

func TestParsePort(t *testing.T) {
	port, err := ParsePort("", 3389)
	require.NoError(t, err)
	assert.Equal(t, 3389, port)

	port, err = ParsePort("4000", 3389)
	require.NoError(t, err)
	assert.Equal(t, 4000, port)

	_, err = ParsePort("not-a-port", 3389)
	assert.Error(t, err)
}
