package grpc

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// functionDefinition is the signature a plugin export must have.
type functionDefinition struct {
	name        string
	paramTypes  []api.ValueType
	resultTypes []api.ValueType
}

var (
	mallocFunctionDefinition = functionDefinition{
		name: "dstr-v1-malloc",
		paramTypes: []api.ValueType{
			api.ValueTypeI32, // u32 (pointer to the current region, 0 for none)
			api.ValueTypeI32, // i32 (requested region size)
		},
		resultTypes: []api.ValueType{api.ValueTypeI32}, // u32 (pointer to the region)
	}
	commandFunctionDefinition = functionDefinition{
		name: "dstr-v1-command",
		paramTypes: []api.ValueType{
			api.ValueTypeI32, // u32 (pointer to the region)
			api.ValueTypeI32, // u32 (method size)
			api.ValueTypeI32, // u32 (method plus request size)
		},
		resultTypes: []api.ValueType{api.ValueTypeI64}, // u64 (pointer<<32 | size of the response frame)
	}
)

// getExportedFunction returns the function the module exports under the name
// of want, or an error if it is missing or has a different signature.
func getExportedFunction(module api.Module, want functionDefinition) (api.Function, error) {
	if _, ok := module.ExportedFunctionDefinitions()[want.name]; !ok {
		return nil, fmt.Errorf("exported function %q does not exist", want.name)
	}

	fn := module.ExportedFunction(want.name)
	def := fn.Definition()
	if !want.matches(def.ParamTypes(), def.ResultTypes()) {
		return nil, &functionDefinitionError{
			expected:       want,
			gotParamTypes:  def.ParamTypes(),
			gotResultTypes: def.ResultTypes(),
		}
	}

	return fn, nil
}

func (d functionDefinition) matches(params, results []api.ValueType) bool {
	return equalTypes(d.paramTypes, params) && equalTypes(d.resultTypes, results)
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type functionDefinitionError struct {
	expected       functionDefinition
	gotParamTypes  []api.ValueType
	gotResultTypes []api.ValueType
}

func (e *functionDefinitionError) Error() string {
	return fmt.Sprintf(
		"exported Wasm function definition mismatch, expected %s, got %s",
		formatSignature(e.expected.name, e.expected.paramTypes, e.expected.resultTypes),
		formatSignature(e.expected.name, e.gotParamTypes, e.gotResultTypes),
	)
}

func formatSignature(name string, params, results []api.ValueType) string {
	out := name + "(" + formatValueTypes(params) + ")"
	if len(results) > 0 {
		out += " -> (" + formatValueTypes(results) + ")"
	}
	return out
}

func formatValueTypes(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = api.ValueTypeName(typ)
	}
	return strings.Join(names, ", ")
}
