package schema

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

// dnsLabelPattern is the metadata.name grammar enforced by the seeded
// shapes.
const dnsLabelPattern = `^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`

// NewSeededRegistry returns a registry preloaded with shapes for the core
// kinds the synthesizer emits most often: ConfigMap, Service, and
// Deployment. Further kinds come from the embedded CUE module via
// RegisterEmbedded and from user files via RegisterFile.
func NewSeededRegistry() *Registry {
	r := NewRegistry()
	r.Register("v1", "ConfigMap", configMapShape())
	r.Register("v1", "Service", serviceShape())
	r.Register("apps/v1", "Deployment", deploymentShape())
	return r
}

func stringProp() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "string"}
}

func stringEnumProp(values ...string) apiextensionsv1.JSONSchemaProps {
	prop := apiextensionsv1.JSONSchemaProps{Type: "string"}
	for _, v := range values {
		prop.Enum = append(prop.Enum, apiextensionsv1.JSON{Raw: []byte(`"` + v + `"`)})
	}
	return prop
}

func intProp(min, max float64) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "integer", Minimum: &min, Maximum: &max}
}

func stringMapProp() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type: "object",
		AdditionalProperties: &apiextensionsv1.JSONSchemaPropsOrBool{
			Allows: true,
			Schema: &apiextensionsv1.JSONSchemaProps{Type: "string"},
		},
	}
}

func freeObjectProp() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "object"}
}

func arrayOf(item apiextensionsv1.JSONSchemaProps) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:  "array",
		Items: &apiextensionsv1.JSONSchemaPropsOrArray{Schema: &item},
	}
}

func objectProp(required []string, props map[string]apiextensionsv1.JSONSchemaProps) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:       "object",
		Required:   required,
		Properties: props,
	}
}

func metadataShape() apiextensionsv1.JSONSchemaProps {
	name := stringProp()
	name.Pattern = dnsLabelPattern
	return objectProp([]string{"name"}, map[string]apiextensionsv1.JSONSchemaProps{
		"name":        name,
		"namespace":   stringProp(),
		"labels":      stringMapProp(),
		"annotations": stringMapProp(),
	})
}

func configMapShape() apiextensionsv1.JSONSchemaProps {
	return objectProp([]string{"apiVersion", "kind", "metadata"}, map[string]apiextensionsv1.JSONSchemaProps{
		"apiVersion": stringEnumProp("v1"),
		"kind":       stringEnumProp("ConfigMap"),
		"metadata":   metadataShape(),
		"data":       stringMapProp(),
		"binaryData": stringMapProp(),
		"immutable":  {Type: "boolean"},
	})
}

func serviceShape() apiextensionsv1.JSONSchemaProps {
	port := intProp(1, 65535)
	servicePort := objectProp([]string{"port"}, map[string]apiextensionsv1.JSONSchemaProps{
		"name":       stringProp(),
		"port":       port,
		"targetPort": port,
		"nodePort":   intProp(1, 65535),
		"protocol":   stringEnumProp("TCP", "UDP", "SCTP"),
	})

	spec := objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{
		"type":      stringEnumProp("ClusterIP", "NodePort", "LoadBalancer", "ExternalName"),
		"selector":  stringMapProp(),
		"ports":     arrayOf(servicePort),
		"clusterIP": stringProp(),
	})

	return objectProp([]string{"apiVersion", "kind", "metadata"}, map[string]apiextensionsv1.JSONSchemaProps{
		"apiVersion": stringEnumProp("v1"),
		"kind":       stringEnumProp("Service"),
		"metadata":   metadataShape(),
		"spec":       spec,
	})
}

func deploymentShape() apiextensionsv1.JSONSchemaProps {
	image := stringProp()
	minLen := int64(1)
	image.MinLength = &minLen

	envVar := objectProp([]string{"name"}, map[string]apiextensionsv1.JSONSchemaProps{
		"name":      stringProp(),
		"value":     stringProp(),
		"valueFrom": freeObjectProp(),
	})

	envFromSource := objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{
		"configMapRef": objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{"name": stringProp()}),
		"secretRef":    objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{"name": stringProp()}),
		"prefix":       stringProp(),
	})

	containerPort := objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{
		"name":          stringProp(),
		"containerPort": intProp(1, 65535),
		"protocol":      stringEnumProp("TCP", "UDP", "SCTP"),
	})

	container := objectProp([]string{"name", "image"}, map[string]apiextensionsv1.JSONSchemaProps{
		"name":      stringProp(),
		"image":     image,
		"command":   arrayOf(stringProp()),
		"args":      arrayOf(stringProp()),
		"ports":     arrayOf(containerPort),
		"env":       arrayOf(envVar),
		"envFrom":   arrayOf(envFromSource),
		"resources": freeObjectProp(),
	})

	podSpec := objectProp([]string{"containers"}, map[string]apiextensionsv1.JSONSchemaProps{
		"containers":         arrayOf(container),
		"initContainers":     arrayOf(container),
		"serviceAccountName": stringProp(),
		"volumes":            arrayOf(freeObjectProp()),
		"nodeSelector":       stringMapProp(),
	})

	podTemplate := objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{
		"metadata": objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{
			"labels":      stringMapProp(),
			"annotations": stringMapProp(),
		}),
		"spec": podSpec,
	})

	zero := float64(0)
	replicas := apiextensionsv1.JSONSchemaProps{Type: "integer", Minimum: &zero}

	spec := objectProp([]string{"template"}, map[string]apiextensionsv1.JSONSchemaProps{
		"replicas": replicas,
		"selector": objectProp(nil, map[string]apiextensionsv1.JSONSchemaProps{
			"matchLabels": stringMapProp(),
		}),
		"template": podTemplate,
		"strategy": freeObjectProp(),
	})

	return objectProp([]string{"apiVersion", "kind", "metadata", "spec"}, map[string]apiextensionsv1.JSONSchemaProps{
		"apiVersion": stringEnumProp("apps/v1"),
		"kind":       stringEnumProp("Deployment"),
		"metadata":   metadataShape(),
		"spec":       spec,
	})
}
