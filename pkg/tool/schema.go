package tool

import (
	"github.com/invopop/jsonschema"

	"github.com/rtmcrc/claude-task-master/pkg/protocol"
)

// ReflectSchema derives an inline JSON schema from a Go struct, suitable
// for tool parameter declarations and generate_object request schemas.
func ReflectSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return protocol.ToMap(reflector.Reflect(v))
}
