package confluence

import (
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/config"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/registry"
)

func init() {
	// Register the Confluence source adapter in the global registry
	_ = registry.RegisterSource(sourceName, func(creds *config.Credentials) (core.SourceAdapter, error) {
		return NewSource(creds)
	})
}
