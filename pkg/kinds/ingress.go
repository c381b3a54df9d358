package kinds

import (
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/graph"
	"github.com/chazu/tryworks/pkg/manifest"
	"github.com/chazu/tryworks/pkg/naming"
	"github.com/chazu/tryworks/pkg/validation"
)

// IngressProps configures an Ingress construct.
type IngressProps struct {
	// Name overrides the generated name.
	Name string

	// ClassName selects the ingress controller.
	ClassName string

	Labels      map[string]string
	Annotations map[string]string
}

// Ingress routes external HTTP traffic to services. Backends are added
// with AddBackend and SetDefaultBackend, which also record the network
// dependencies.
type Ingress struct {
	manifest.Base

	className      string
	rules          []networkingv1.IngressRule
	defaultBackend *networkingv1.IngressBackend
	hints          []graph.Hint
}

// NewIngress creates an Ingress construct under owner.
func NewIngress(owner construct.Construct, id string, props IngressProps) (*Ingress, error) {
	ing := &Ingress{className: props.ClassName}
	base, err := manifest.NewBase(ing, owner, id, manifest.BaseConfig{
		APIVersion:  "networking.k8s.io/v1",
		Kind:        "Ingress",
		Name:        props.Name,
		Labels:      props.Labels,
		Annotations: props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	ing.Base = *base
	return ing, nil
}

// AddBackend routes host/path to the given service port. An empty path
// defaults to /.
func (i *Ingress) AddBackend(host, path string, svc *Service, port int32) *Ingress {
	if path == "" {
		path = "/"
	}
	pathType := networkingv1.PathTypePrefix
	i.rules = append(i.rules, networkingv1.IngressRule{
		Host: host,
		IngressRuleValue: networkingv1.IngressRuleValue{
			HTTP: &networkingv1.HTTPIngressRuleValue{
				Paths: []networkingv1.HTTPIngressPath{{
					Path:     path,
					PathType: &pathType,
					Backend:  serviceBackend(svc, port),
				}},
			},
		},
	})
	i.hints = append(i.hints, graph.Hint{
		Dependent:   i,
		Dependency:  svc,
		Type:        graph.EdgeNetwork,
		Description: "routes to service",
	})
	return i
}

// SetDefaultBackend routes unmatched traffic to the given service port.
func (i *Ingress) SetDefaultBackend(svc *Service, port int32) *Ingress {
	backend := serviceBackend(svc, port)
	i.defaultBackend = &backend
	i.hints = append(i.hints, graph.Hint{
		Dependent:   i,
		Dependency:  svc,
		Type:        graph.EdgeNetwork,
		Description: "default backend",
	})
	return i
}

func serviceBackend(svc *Service, port int32) networkingv1.IngressBackend {
	return networkingv1.IngressBackend{
		Service: &networkingv1.IngressServiceBackend{
			Name: svc.Name(),
			Port: networkingv1.ServiceBackendPort{Number: port},
		},
	}
}

// DependencyHints reports the services this ingress routes to.
func (i *Ingress) DependencyHints() []graph.Hint {
	out := make([]graph.Hint, len(i.hints))
	copy(out, i.hints)
	return out
}

// Validate checks the metadata grammar and every rule host.
func (i *Ingress) Validate() []validation.Problem {
	problems := i.Base.Validate()
	for _, rule := range i.rules {
		if rule.Host == "" {
			continue
		}
		for _, msg := range naming.ValidateSubdomain(rule.Host) {
			problems = append(problems, validation.Errorf(i.TreeNode().Path(), CodeInvalidHost,
				"%s", msg))
		}
	}
	return problems
}

// Document renders the ingress document.
func (i *Ingress) Document() (*unstructured.Unstructured, error) {
	spec := networkingv1.IngressSpec{
		Rules:          i.rules,
		DefaultBackend: i.defaultBackend,
	}
	if i.className != "" {
		className := i.className
		spec.IngressClassName = &className
	}
	ing := &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{
			APIVersion: i.APIVersion(),
			Kind:       i.Kind(),
		},
		ObjectMeta: i.ObjectMeta(),
		Spec:       spec,
	}
	return toDocument(ing)
}
