package inventory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

const sampleInventory = `
targets:
  web:
    hosts:
      - "web[1-3].example.com"
    user: deploy
    port: 2222
  db:
    hosts:
      - "db-[east,west]"
      - "db-arbiter"
    password: hunter2
tasks:
  uptime:
    cmd: uptime
    desc: Show host uptime
  reboot:
    cmd: sudo reboot
`

func TestParse(t *testing.T) {
	inv, err := Parse([]byte(sampleInventory))
	require.NoError(t, err)

	assert.Len(t, inv.Targets, 2)
	assert.Equal(t, []string{"web[1-3].example.com"}, inv.Targets["web"].Hosts)
	assert.Equal(t, "deploy", inv.Targets["web"].User)
	assert.Equal(t, 2222, inv.Targets["web"].Port)
	assert.Equal(t, "hunter2", inv.Targets["db"].Password)

	assert.Len(t, inv.Tasks, 2)
	assert.Equal(t, "uptime", inv.Tasks["uptime"].Cmd)
	assert.Equal(t, "Show host uptime", inv.Tasks["uptime"].Desc)
	assert.Empty(t, inv.Tasks["reboot"].Desc)

	assert.Equal(t, []string{"db", "web"}, inv.TargetNames())
	assert.Equal(t, []string{"reboot", "uptime"}, inv.TaskNames())
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("targets: ["))
	require.Error(t, err)
	assert.Equal(t, errors.ConfigLoad, errors.CategoryOf(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "target without hosts",
			yaml: "targets:\n  broken:\n    user: root\n",
			want: "broken",
		},
		{
			name: "target with empty host pattern",
			yaml: "targets:\n  broken:\n    hosts: [\"\"]\n",
			want: "broken",
		},
		{
			name: "target with negative port",
			yaml: "targets:\n  broken:\n    hosts: [\"a\"]\n    port: -22\n",
			want: "broken",
		},
		{
			name: "task without command",
			yaml: "tasks:\n  broken:\n    desc: nothing\n",
			want: "broken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, errors.ConfigInvalid, errors.CategoryOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingDefaultFileYieldsEmptyInventory(t *testing.T) {
	inv, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), false)
	require.NoError(t, err)
	assert.Empty(t, inv.Targets)
	assert.Empty(t, inv.Tasks)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	_, err := Load(path, true)
	require.Error(t, err)
	assert.Equal(t, errors.ConfigLoad, errors.CategoryOf(err))
}

func TestEmptyInventoryIsValid(t *testing.T) {
	inv, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.NoError(t, inv.Validate())
}
