package kinds

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
)

// ServiceAccountProps configures a ServiceAccount construct.
type ServiceAccountProps struct {
	// Name overrides the generated name.
	Name string

	Labels      map[string]string
	Annotations map[string]string
}

// ServiceAccount is a workload identity document.
type ServiceAccount struct {
	manifest.Base
}

// NewServiceAccount creates a ServiceAccount construct under owner.
func NewServiceAccount(owner construct.Construct, id string, props ServiceAccountProps) (*ServiceAccount, error) {
	sa := &ServiceAccount{}
	base, err := manifest.NewBase(sa, owner, id, manifest.BaseConfig{
		APIVersion:  "v1",
		Kind:        "ServiceAccount",
		Name:        props.Name,
		Labels:      props.Labels,
		Annotations: props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	sa.Base = *base
	return sa, nil
}

// Document renders the service account document.
func (s *ServiceAccount) Document() (*unstructured.Unstructured, error) {
	return s.NewDocument(), nil
}
