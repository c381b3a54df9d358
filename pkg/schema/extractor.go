package schema

import (
	"fmt"
	"math"
	"strings"

	"cuelang.org/go/cue"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

// Extractor converts CUE shape declarations into the JSON schema form the
// manifest checker consumes.
type Extractor struct{}

// NewExtractor creates a new shape extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// CueToJSONSchema converts a CUE value to a JSON schema. Disjunctions of
// concrete values become enums, struct fields become properties (optional
// markers map to the required list), and numeric bounds are recovered by
// probing the value with candidate constants.
func (e *Extractor) CueToJSONSchema(v cue.Value) (*apiextensionsv1.JSONSchemaProps, error) {
	if v.Err() != nil {
		return nil, fmt.Errorf("CUE value has errors: %w", v.Err())
	}

	// Disjunctions are handled before kind dispatch: an int|string union
	// has no single kind.
	if op, args := v.Expr(); op == cue.OrOp && len(args) > 0 {
		return e.disjunctionSchema(args)
	}

	schema := &apiextensionsv1.JSONSchemaProps{}

	switch kind := v.IncompleteKind(); kind {
	case cue.BottomKind:
		return nil, fmt.Errorf("bottom value in CUE shape")

	case cue.NullKind:
		schema.Type = "null"

	case cue.BoolKind:
		schema.Type = "boolean"
		if def, ok := v.Default(); ok && def.Err() == nil {
			if b, err := def.Bool(); err == nil {
				schema.Default = jsonRaw(fmt.Sprintf("%t", b))
			}
		}

	case cue.IntKind:
		schema.Type = "integer"
		e.numericConstraints(v, schema)

	case cue.FloatKind, cue.NumberKind:
		schema.Type = "number"
		e.numericConstraints(v, schema)

	case cue.StringKind:
		schema.Type = "string"
		e.stringConstraints(v, schema)

	case cue.BytesKind:
		schema.Type = "string"
		schema.Format = "byte"

	case cue.ListKind:
		schema.Type = "array"
		if err := e.listSchema(v, schema); err != nil {
			return nil, err
		}

	case cue.StructKind:
		schema.Type = "object"
		if err := e.structSchema(v, schema); err != nil {
			return nil, err
		}

	default:
		if kind&cue.IntKind != 0 && kind&cue.FloatKind != 0 {
			schema.Type = "number"
			e.numericConstraints(v, schema)
			break
		}
		// Opaque or mixed kinds: treat as an object when fields exist,
		// otherwise accept anything.
		if iter, err := v.Fields(cue.Optional(true)); err == nil && iter.Next() {
			schema.Type = "object"
			if err := e.structSchema(v, schema); err != nil {
				return nil, err
			}
			break
		}
		schema.XPreserveUnknownFields = boolPtr(true)
	}

	for _, doc := range v.Doc() {
		if text := strings.TrimSpace(doc.Text()); text != "" {
			if schema.Description != "" {
				schema.Description += "\n"
			}
			schema.Description += text
		}
	}

	return schema, nil
}

// numericConstraints recovers the default and any bounds of a numeric
// value. CUE does not expose bound expressions directly, so bounds are
// probed: if the extreme fails to unify, common boundary constants are
// tried until one is accepted.
func (e *Extractor) numericConstraints(v cue.Value, schema *apiextensionsv1.JSONSchemaProps) {
	if def, ok := v.Default(); ok && def.Err() == nil {
		if i, err := def.Int64(); err == nil {
			schema.Default = jsonRaw(fmt.Sprintf("%d", i))
		} else if f, err := def.Float64(); err == nil {
			schema.Default = jsonRaw(fmt.Sprintf("%g", f))
		}
	}

	if v.Unify(v.Context().Encode(int64(math.MinInt64))).Err() != nil {
		for _, candidate := range []int64{0, 1, -1} {
			if v.Unify(v.Context().Encode(candidate)).Err() == nil {
				minimum := float64(candidate)
				schema.Minimum = &minimum
				break
			}
		}
	}

	if v.Unify(v.Context().Encode(int64(math.MaxInt64))).Err() != nil {
		for _, candidate := range []int64{65535, 100, 10} {
			if v.Unify(v.Context().Encode(candidate)).Err() == nil {
				maximum := float64(candidate)
				schema.Maximum = &maximum
				break
			}
		}
	}
}

// stringConstraints recovers the default and the non-empty constraint of
// a string value.
func (e *Extractor) stringConstraints(v cue.Value, schema *apiextensionsv1.JSONSchemaProps) {
	if def, ok := v.Default(); ok && def.Err() == nil {
		if s, err := def.String(); err == nil {
			schema.Default = jsonRaw(fmt.Sprintf("%q", s))
		}
	}

	// string & !="" rejects the empty string; surface that as minLength.
	if v.Unify(v.Context().Encode("")).Err() != nil {
		minLen := int64(1)
		schema.MinLength = &minLen
	}
}

// listSchema fills in the item schema of an array value.
func (e *Extractor) listSchema(v cue.Value, schema *apiextensionsv1.JSONSchemaProps) error {
	if iter, err := v.List(); err == nil && iter.Next() {
		itemSchema, err := e.CueToJSONSchema(iter.Value())
		if err != nil {
			return fmt.Errorf("failed to extract array item schema: %w", err)
		}
		schema.Items = &apiextensionsv1.JSONSchemaPropsOrArray{Schema: itemSchema}
		return nil
	}

	// [...T] lists have no concrete elements to iterate; fall back to the
	// element constraint when one is recoverable, else accept any items.
	if op, args := v.Expr(); op == cue.SelectorOp && len(args) > 0 {
		if itemSchema, err := e.CueToJSONSchema(args[0]); err == nil {
			schema.Items = &apiextensionsv1.JSONSchemaPropsOrArray{Schema: itemSchema}
			return nil
		}
	}
	schema.Items = &apiextensionsv1.JSONSchemaPropsOrArray{
		Schema: &apiextensionsv1.JSONSchemaProps{XPreserveUnknownFields: boolPtr(true)},
	}
	return nil
}

// structSchema fills in the properties and required list of a struct
// value. Hidden (_) and definition (#) fields are not part of the data
// shape and are skipped.
func (e *Extractor) structSchema(v cue.Value, schema *apiextensionsv1.JSONSchemaProps) error {
	schema.Properties = make(map[string]apiextensionsv1.JSONSchemaProps)
	var required []string

	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return fmt.Errorf("failed to iterate struct fields: %w", err)
	}

	for iter.Next() {
		// Selector().String() quotes non-identifier labels and appends
		// '?' to optional fields.
		name := strings.TrimSuffix(iter.Selector().String(), "?")
		name = strings.Trim(name, `"`)

		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
			continue
		}

		fieldSchema, err := e.CueToJSONSchema(iter.Value())
		if err != nil {
			return fmt.Errorf("failed to extract schema for field %s: %w", name, err)
		}
		schema.Properties[name] = *fieldSchema

		if !iter.IsOptional() {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		schema.Required = required
	}
	return nil
}

// disjunctionSchema turns a disjunction into an enum when every arm is a
// concrete string or integer, and into a oneOf schema otherwise.
func (e *Extractor) disjunctionSchema(args []cue.Value) (*apiextensionsv1.JSONSchemaProps, error) {
	allConcrete := true
	var raws [][]byte
	var firstKind cue.Kind

	for i, arg := range args {
		if !arg.IsConcrete() {
			allConcrete = false
			break
		}
		if i == 0 {
			firstKind = arg.Kind()
		}
		switch arg.Kind() {
		case cue.StringKind:
			if s, err := arg.String(); err == nil {
				raws = append(raws, []byte(fmt.Sprintf("%q", s)))
			}
		case cue.IntKind:
			if n, err := arg.Int64(); err == nil {
				raws = append(raws, []byte(fmt.Sprintf("%d", n)))
			}
		default:
			allConcrete = false
		}
		if !allConcrete {
			break
		}
	}

	if allConcrete && len(raws) > 0 {
		schema := &apiextensionsv1.JSONSchemaProps{Type: "string"}
		if firstKind == cue.IntKind {
			schema.Type = "integer"
		}
		for _, raw := range raws {
			schema.Enum = append(schema.Enum, apiextensionsv1.JSON{Raw: raw})
		}
		return schema, nil
	}

	schema := &apiextensionsv1.JSONSchemaProps{
		OneOf: make([]apiextensionsv1.JSONSchemaProps, 0, len(args)),
	}
	for _, arg := range args {
		armSchema, err := e.CueToJSONSchema(arg)
		if err != nil {
			continue
		}
		schema.OneOf = append(schema.OneOf, *armSchema)
	}
	if len(schema.OneOf) == 0 {
		return &apiextensionsv1.JSONSchemaProps{XPreserveUnknownFields: boolPtr(true)}, nil
	}
	return schema, nil
}

func jsonRaw(s string) *apiextensionsv1.JSON {
	return &apiextensionsv1.JSON{Raw: []byte(s)}
}

func boolPtr(b bool) *bool {
	return &b
}
