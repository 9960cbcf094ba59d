package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/config"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/registry"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/sources/confluence"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/sources/jira"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

func testCreds() *config.Credentials {
	return &config.Credentials{
		CloudID: "cloud-1",
		Email:   "svc@example.com",
		APIKey:  "secret",
	}
}

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.RegisterSource("jira", jira.NewSource))
	require.NoError(t, r.RegisterSource("confluence", confluence.NewSource))

	t.Run("duplicate registration rejected", func(t *testing.T) {
		err := r.RegisterSource("jira", jira.NewSource)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("create known source", func(t *testing.T) {
		adapter, err := r.CreateSource("jira", testCreds())
		require.NoError(t, err)
		assert.Equal(t, "jira", adapter.Name())
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := r.CreateSource("bitbucket", testCreds())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("factory error is wrapped", func(t *testing.T) {
		_, err := r.CreateSource("jira", nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("list is sorted", func(t *testing.T) {
		assert.Equal(t, []string{"confluence", "jira"}, r.ListSources())
	})
}

func TestFactoriesImplementAdapter(t *testing.T) {
	for _, factory := range []registry.AdapterFactory{jira.NewSource, confluence.NewSource} {
		adapter, err := factory(testCreds())
		require.NoError(t, err)
		assert.NotEmpty(t, adapter.Name())
		assert.NotEmpty(t, adapter.Namespace())
	}
}
