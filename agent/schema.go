package agent

import "strings"

// Param declares one tool parameter. Type is "string", "number", or
// "boolean"; a trailing "?" marks the parameter optional. Declared "number"
// parameters are integers on the wire.
type Param struct {
	Name string
	Type string
}

// Optional reports whether the parameter may be omitted from a call.
func (p Param) Optional() bool {
	return strings.HasSuffix(p.Type, "?")
}

// BaseType returns the parameter type without the optional marker.
func (p Param) BaseType() string {
	return strings.TrimSuffix(p.Type, "?")
}

// Schema expands a parameter declaration into the JSON-Schema object sent to
// the model. Properties keep their declared types except "number", which is
// published as "integer"; every non-optional name lands in required, in
// declaration order.
func Schema(params []Param) map[string]interface{} {
	props := make(map[string]interface{}, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		typ := p.BaseType()
		if typ == "number" {
			typ = "integer"
		}
		props[p.Name] = map[string]interface{}{"type": typ}
		if !p.Optional() {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
