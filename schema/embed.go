package schema

import _ "embed"

// ServicesV1Schema contains the JSON schema for service manifests.
//
//go:embed services.v1.json
var ServicesV1Schema []byte
