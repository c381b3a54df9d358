package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/validation"
)

// Codes for the problems produced by the manifest checker.
const (
	CodeTypeMismatch     = "SCHEMA_TYPE_MISMATCH"
	CodeRequiredProperty = "SCHEMA_REQUIRED_PROPERTY"
	CodeEnumMismatch     = "SCHEMA_ENUM_MISMATCH"
	CodePatternMismatch  = "SCHEMA_PATTERN_MISMATCH"
	CodeInvalidPattern   = "SCHEMA_INVALID_PATTERN"
	CodeMinimum          = "SCHEMA_MINIMUM"
	CodeMaximum          = "SCHEMA_MAXIMUM"
	CodeMinLength        = "SCHEMA_MIN_LENGTH"
	CodeUnknownProperty  = "SCHEMA_UNKNOWN_PROPERTY"
)

// ValidateManifest checks doc against the shape registered for its
// apiVersion/kind. Documents of unregistered kinds pass trivially:
// absence of a shape is not an error, so coverage can grow kind by kind.
func (r *Registry) ValidateManifest(doc *unstructured.Unstructured) *validation.Result {
	result := &validation.Result{}
	shape, ok := r.Lookup(doc.GetAPIVersion(), doc.GetKind())
	if !ok {
		return result
	}
	checkValue("", doc.Object, &shape, result)
	return result
}

// checkValue validates one document value against one schema node,
// recursing into object properties and array items. path is the dotted
// field path of value within the document; the document root is "".
func checkValue(path string, value interface{}, schema *apiextensionsv1.JSONSchemaProps, result *validation.Result) {
	if schema == nil {
		return
	}

	if len(schema.Enum) > 0 {
		checkEnum(path, value, schema, result)
	}

	switch schema.Type {
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected object, got %s", displayPath(path), typeName(value)))
			return
		}
		checkObject(path, obj, schema, result)

	case "array":
		items, ok := value.([]interface{})
		if !ok {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected array, got %s", displayPath(path), typeName(value)))
			return
		}
		if schema.Items != nil && schema.Items.Schema != nil {
			for i, item := range items {
				checkValue(fmt.Sprintf("%s[%d]", path, i), item, schema.Items.Schema, result)
			}
		}

	case "string":
		s, ok := value.(string)
		if !ok {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected string, got %s", displayPath(path), typeName(value)))
			return
		}
		checkString(path, s, schema, result)

	case "integer":
		n, ok := numericValue(value)
		if !ok || !isIntegral(value) {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected integer, got %s", displayPath(path), typeName(value)))
			return
		}
		checkBounds(path, n, schema, result)

	case "number":
		n, ok := numericValue(value)
		if !ok {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected number, got %s", displayPath(path), typeName(value)))
			return
		}
		checkBounds(path, n, schema, result)

	case "boolean":
		if _, ok := value.(bool); !ok {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected boolean, got %s", displayPath(path), typeName(value)))
		}

	case "null":
		if value != nil {
			result.Add(validation.Errorf(path, CodeTypeMismatch,
				"%s: expected null, got %s", displayPath(path), typeName(value)))
		}
	}
}

func checkObject(path string, obj map[string]interface{}, schema *apiextensionsv1.JSONSchemaProps, result *validation.Result) {
	for _, req := range schema.Required {
		if v, present := obj[req]; !present || v == nil {
			result.Add(validation.Errorf(joinPath(path, req), CodeRequiredProperty,
				"%s: required property %q is missing", displayPath(path), req))
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := obj[key]
		childPath := joinPath(path, key)

		if prop, declared := schema.Properties[key]; declared {
			checkValue(childPath, value, &prop, result)
			continue
		}
		if schema.AdditionalProperties != nil {
			if schema.AdditionalProperties.Schema != nil {
				checkValue(childPath, value, schema.AdditionalProperties.Schema, result)
			}
			continue
		}
		// Unknown properties only matter for shapes that declare their
		// property set; an empty Properties map means free-form content.
		if len(schema.Properties) > 0 {
			result.Add(validation.Warningf(childPath, CodeUnknownProperty,
				"%s: unknown property %q", displayPath(path), key))
		}
	}
}

func checkString(path, s string, schema *apiextensionsv1.JSONSchemaProps, result *validation.Result) {
	if schema.MinLength != nil && int64(len(s)) < *schema.MinLength {
		result.Add(validation.Errorf(path, CodeMinLength,
			"%s: length %d is below the minimum %d", displayPath(path), len(s), *schema.MinLength))
	}
	if schema.Pattern != "" {
		re, err := regexp.Compile(schema.Pattern)
		if err != nil {
			result.Add(validation.Errorf(path, CodeInvalidPattern,
				"%s: shape pattern %q does not compile: %v", displayPath(path), schema.Pattern, err))
			return
		}
		if !re.MatchString(s) {
			result.Add(validation.Errorf(path, CodePatternMismatch,
				"%s: %q does not match pattern %q", displayPath(path), s, schema.Pattern))
		}
	}
}

func checkBounds(path string, n float64, schema *apiextensionsv1.JSONSchemaProps, result *validation.Result) {
	if schema.Minimum != nil && n < *schema.Minimum {
		result.Add(validation.Errorf(path, CodeMinimum,
			"%s: %v is below the minimum %v", displayPath(path), n, *schema.Minimum))
	}
	if schema.Maximum != nil && n > *schema.Maximum {
		result.Add(validation.Errorf(path, CodeMaximum,
			"%s: %v is above the maximum %v", displayPath(path), n, *schema.Maximum))
	}
}

// checkEnum compares the JSON encoding of value against each enum
// literal, so int64 and float64 encodings of the same number compare
// equal.
func checkEnum(path string, value interface{}, schema *apiextensionsv1.JSONSchemaProps, result *validation.Result) {
	encoded, err := json.Marshal(value)
	if err != nil {
		result.Add(validation.Errorf(path, CodeEnumMismatch,
			"%s: value is not JSON-encodable: %v", displayPath(path), err))
		return
	}
	for _, allowed := range schema.Enum {
		if string(encoded) == string(allowed.Raw) {
			return
		}
	}
	allowed := make([]string, len(schema.Enum))
	for i, a := range schema.Enum {
		allowed[i] = string(a.Raw)
	}
	result.Add(validation.Errorf(path, CodeEnumMismatch,
		"%s: %s is not one of %v", displayPath(path), encoded, allowed))
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isIntegral(v interface{}) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float32:
		return float64(n) == math.Trunc(float64(n))
	case float64:
		return n == math.Trunc(n)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "document"
	}
	return path
}
