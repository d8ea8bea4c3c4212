package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testIndex() *typeIndex {
	return newTypeIndex([]string{
		"n8n-nodes-base.httpRequest",
		"n8n-nodes-base.webhook",
		"n8n-nodes-base.emailSend",
		"n8n-nodes-base.emailReadImapTrigger",
		"n8n-nodes-base.gmail",
		"n8n-nodes-base.gmailTrigger",
		"@n8n/n8n-nodes-langchain.agent",
	})
}

func TestNormalize(t *testing.T) {
	idx := testIndex()

	t.Run("Should match exact full types first", func(t *testing.T) {
		got, ok := idx.Normalize("n8n-nodes-base.httpRequest")
		assert.True(t, ok)
		assert.Equal(t, "n8n-nodes-base.httpRequest", got)
	})

	t.Run("Should expand DB forms", func(t *testing.T) {
		got, ok := idx.Normalize("nodes-base.webhook")
		assert.True(t, ok)
		assert.Equal(t, "n8n-nodes-base.webhook", got)

		got, ok = idx.Normalize("nodes-langchain.agent")
		assert.True(t, ok)
		assert.Equal(t, "@n8n/n8n-nodes-langchain.agent", got)
	})

	t.Run("Should resolve short names case-insensitively", func(t *testing.T) {
		got, ok := idx.Normalize("HTTPREQUEST")
		assert.True(t, ok)
		assert.Equal(t, "n8n-nodes-base.httpRequest", got)
	})

	t.Run("Should prefer the non-trigger variant for ambiguous short names", func(t *testing.T) {
		got, ok := idx.Normalize("gmail")
		assert.True(t, ok)
		assert.Equal(t, "n8n-nodes-base.gmail", got)
	})

	t.Run("Should return the trigger variant when the caller names it", func(t *testing.T) {
		got, ok := idx.Normalize("gmailTrigger")
		assert.True(t, ok)
		assert.Equal(t, "n8n-nodes-base.gmailTrigger", got)
	})

	t.Run("Should fail for unknown input", func(t *testing.T) {
		_, ok := idx.Normalize("definitelyNotANode")
		assert.False(t, ok)
		_, ok = idx.Normalize("")
		assert.False(t, ok)
	})
}

func TestCompareVersions(t *testing.T) {
	t.Run("Should compare numeric components", func(t *testing.T) {
		assert.Equal(t, 0, CompareVersions("3", "3.0"))
		assert.Equal(t, 1, CompareVersions("3.2", "3"))
		assert.Equal(t, -1, CompareVersions("2.10", "2.11"))
		assert.Equal(t, 1, CompareVersions("10", "9.9"))
	})
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "3", FormatVersion(3))
	assert.Equal(t, "3.2", FormatVersion(3.2))
}
