package kinds

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
)

// DefaultSecretType is used when props leave the type empty.
const DefaultSecretType = "Opaque"

// SecretProps configures a Secret construct.
type SecretProps struct {
	// Name overrides the generated name.
	Name string

	// Type sets the secret type, DefaultSecretType when empty.
	Type string

	// StringData seeds the secret with plain-text values; the cluster
	// encodes them on admission.
	StringData map[string]string

	Labels      map[string]string
	Annotations map[string]string
}

// Secret is a secret document carrying plain-text string data.
type Secret struct {
	manifest.Base

	secretType string
	stringData map[string]string
}

// NewSecret creates a Secret construct under owner.
func NewSecret(owner construct.Construct, id string, props SecretProps) (*Secret, error) {
	sec := &Secret{
		secretType: props.Type,
		stringData: make(map[string]string, len(props.StringData)),
	}
	if sec.secretType == "" {
		sec.secretType = DefaultSecretType
	}
	base, err := manifest.NewBase(sec, owner, id, manifest.BaseConfig{
		APIVersion:  "v1",
		Kind:        "Secret",
		Name:        props.Name,
		Labels:      props.Labels,
		Annotations: props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	sec.Base = *base
	for k, v := range props.StringData {
		sec.stringData[k] = v
	}
	return sec, nil
}

// AddStringData sets one plain-text entry, replacing any previous value
// for the key.
func (s *Secret) AddStringData(key, value string) *Secret {
	s.stringData[key] = value
	return s
}

// Type returns the secret type.
func (s *Secret) Type() string {
	return s.secretType
}

// Document renders the secret document.
func (s *Secret) Document() (*unstructured.Unstructured, error) {
	doc := s.NewDocument()
	doc.Object["type"] = s.secretType
	if len(s.stringData) > 0 {
		if err := unstructured.SetNestedStringMap(doc.Object, s.stringData, "stringData"); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
