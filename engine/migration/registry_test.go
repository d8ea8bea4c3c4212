package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n8n-cli/n8nctl/engine/workflow"
)

func TestChangesFor(t *testing.T) {
	reg := DefaultRegistry()
	t.Run("Should match changes whose boundary the upgrade crosses", func(t *testing.T) {
		got := reg.ChangesFor("n8n-nodes-base.set", "2", "3.4")
		props := make([]string, 0, len(got))
		for _, c := range got {
			props = append(props, c.Property)
		}
		assert.Contains(t, props, "values")
	})
	t.Run("Should include wildcard entries for any node type", func(t *testing.T) {
		got := reg.ChangesFor("n8n-nodes-base.gmail", "1", "2")
		require.NotEmpty(t, got)
		assert.Equal(t, "continueOnFail", got[0].Property)
	})
	t.Run("Should return nothing for a downgrade or same version", func(t *testing.T) {
		assert.Empty(t, reg.ChangesFor("n8n-nodes-base.set", "3", "3"))
		assert.Empty(t, reg.ChangesFor("n8n-nodes-base.set", "3", "2"))
	})
	t.Run("Should skip changes outside the jumped range", func(t *testing.T) {
		got := reg.ChangesFor("n8n-nodes-base.httpRequest", "4", "4.2")
		for _, c := range got {
			assert.NotEqual(t, "responseFormat", c.Property)
		}
	})
}

func TestMigrate(t *testing.T) {
	t.Run("Should rename a parameter and report the rewrite", func(t *testing.T) {
		reg := DefaultRegistry()
		node := &workflow.Node{
			Type:        "n8n-nodes-base.set",
			TypeVersion: 2,
			Parameters:  map[string]any{"values": map[string]any{"x": 1}},
		}
		applied, manual := reg.Migrate(node, "3")
		require.Len(t, applied, 1)
		assert.Equal(t, "values", applied[0].Property)
		assert.Empty(t, manual)
		assert.NotContains(t, node.Parameters, "values")
		assert.Contains(t, node.Parameters, "assignments")
	})
	t.Run("Should surface manual hints for non-migratable breaking changes", func(t *testing.T) {
		reg := DefaultRegistry()
		node := &workflow.Node{
			Type:        "n8n-nodes-base.switch",
			TypeVersion: 2,
			Parameters:  map[string]any{"rules": map[string]any{}},
		}
		_, manual := reg.Migrate(node, "3.2")
		require.NotEmpty(t, manual)
		assert.Contains(t, manual[0], "rules")
	})
	t.Run("Should rewrite continueOnFail into onError", func(t *testing.T) {
		reg := DefaultRegistry()
		yes := true
		node := &workflow.Node{
			Type:           "n8n-nodes-base.gmail",
			TypeVersion:    1,
			ContinueOnFail: &yes,
		}
		applied, _ := reg.Migrate(node, "2")
		require.Len(t, applied, 1)
		assert.Nil(t, node.ContinueOnFail)
		assert.Equal(t, workflow.OnErrorContinueRegularOutput, node.OnError)
	})
	t.Run("Should not default a parameter the node already sets", func(t *testing.T) {
		reg := DefaultRegistry()
		node := &workflow.Node{
			Type:        "n8n-nodes-base.code",
			TypeVersion: 1,
			Parameters:  map[string]any{"mode": "runOnceForEachItem"},
		}
		applied, _ := reg.Migrate(node, "2")
		assert.Empty(t, applied)
		assert.Equal(t, "runOnceForEachItem", node.Parameters["mode"])
	})
}
