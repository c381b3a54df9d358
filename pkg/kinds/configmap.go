package kinds

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
)

// ConfigMapProps configures a ConfigMap construct.
type ConfigMapProps struct {
	// Name overrides the generated name.
	Name string

	// Data seeds the config data. More entries can be added later with
	// AddData, up until synthesis.
	Data map[string]string

	Labels      map[string]string
	Annotations map[string]string
}

// ConfigMap is a plain key/value config document.
type ConfigMap struct {
	manifest.Base

	data map[string]string
}

// NewConfigMap creates a ConfigMap construct under owner.
func NewConfigMap(owner construct.Construct, id string, props ConfigMapProps) (*ConfigMap, error) {
	cm := &ConfigMap{
		data: make(map[string]string, len(props.Data)),
	}
	base, err := manifest.NewBase(cm, owner, id, manifest.BaseConfig{
		APIVersion:  "v1",
		Kind:        "ConfigMap",
		Name:        props.Name,
		Labels:      props.Labels,
		Annotations: props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	cm.Base = *base
	for k, v := range props.Data {
		cm.data[k] = v
	}
	return cm, nil
}

// AddData sets one data entry, replacing any previous value for the key.
func (c *ConfigMap) AddData(key, value string) *ConfigMap {
	c.data[key] = value
	return c
}

// Data returns the live data map.
func (c *ConfigMap) Data() map[string]string {
	return c.data
}

// Document renders the config document.
func (c *ConfigMap) Document() (*unstructured.Unstructured, error) {
	doc := c.NewDocument()
	if len(c.data) > 0 {
		if err := unstructured.SetNestedStringMap(doc.Object, c.data, "data"); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
