package builtin

import "ragicflow/internal/plugin"

// RagicCredentialType is the credential of the action node.
var RagicCredentialType = plugin.CredentialType{
	Name:             "ragicApi",
	DisplayName:      "Ragic API",
	DocumentationURL: "https://www.ragic.com/intl/en/doc/156",
	Properties: []plugin.Property{
		{
			Name: "api_key", DisplayName: "API Key", Type: plugin.TypeString, Required: true, Secret: true,
			Description: "See https://www.ragic.com/intl/en/doc-user/20/personal-settings#4",
		},
		{
			Name: "server_name", DisplayName: "Server Name", Type: plugin.TypeString, Required: true,
			Description: `Host part of the database URL, like "www.ragic.com" or "ap5.ragic.com"`,
		},
	},
}

// RagicTriggerCredentialType is the credential of the trigger node.
var RagicTriggerCredentialType = plugin.CredentialType{
	Name:             "ragicTriggerApi",
	DisplayName:      "Ragic Trigger API",
	DocumentationURL: "https://www.ragic.com/intl/en/doc/156",
	Properties: []plugin.Property{
		{
			Name: "api_key", DisplayName: "API Key", Type: plugin.TypeString, Required: true, Secret: true,
			Description: "See https://www.ragic.com/intl/en/doc-user/20/personal-settings#4",
		},
		{
			Name: "sheet_url", DisplayName: "Sheet URL", Type: plugin.TypeString, Required: true,
			Description: `Sheet URL from "https" up to the character before "?"`,
		},
	},
}
