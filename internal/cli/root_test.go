package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	cmd := GetRootCmd()
	assert.Equal(t, "switchboard", cmd.Use)
	assert.Equal(t, version, cmd.Version)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "chat")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "sessions")
	assert.Contains(t, names, "seed")
	assert.Contains(t, names, "configure")
}

func TestRootCommandFlags(t *testing.T) {
	cmd := GetRootCmd()
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}
