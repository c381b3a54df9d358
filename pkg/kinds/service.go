package kinds

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
	"github.com/chazu/tryworks/pkg/naming"
	"github.com/chazu/tryworks/pkg/validation"
)

// ServicePortProps describes one exposed port.
type ServicePortProps struct {
	// Name is optional; required by the platform only when a service
	// exposes more than one port.
	Name string

	// Port is the port the service listens on.
	Port int32

	// TargetPort is the container port traffic is forwarded to. Defaults
	// to Port.
	TargetPort int32

	// Protocol defaults to TCP.
	Protocol string

	// NodePort is only meaningful for NodePort services.
	NodePort int32
}

// ServiceProps configures a Service construct.
type ServiceProps struct {
	// Name overrides the generated name.
	Name string

	// Type defaults to ClusterIP.
	Type string

	// Selector picks the pods the service routes to.
	Selector map[string]string

	// Ports seeds the exposed ports; more can be added with AddPort.
	Ports []ServicePortProps

	Labels      map[string]string
	Annotations map[string]string
}

// Service is a traffic-routing document built from the typed API structs.
type Service struct {
	manifest.Base

	serviceType corev1.ServiceType
	selector    map[string]string
	ports       []corev1.ServicePort
}

// NewService creates a Service construct under owner.
func NewService(owner construct.Construct, id string, props ServiceProps) (*Service, error) {
	svc := &Service{
		serviceType: corev1.ServiceTypeClusterIP,
		selector:    naming.MergeLabels(props.Selector),
	}
	if props.Type != "" {
		svc.serviceType = corev1.ServiceType(props.Type)
	}
	base, err := manifest.NewBase(svc, owner, id, manifest.BaseConfig{
		APIVersion:  "v1",
		Kind:        "Service",
		Name:        props.Name,
		Labels:      props.Labels,
		Annotations: props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	svc.Base = *base
	for _, p := range props.Ports {
		svc.AddPort(p)
	}
	return svc, nil
}

// AddPort exposes one more port.
func (s *Service) AddPort(p ServicePortProps) *Service {
	port := corev1.ServicePort{
		Name:     p.Name,
		Port:     p.Port,
		Protocol: corev1.ProtocolTCP,
	}
	if p.Protocol != "" {
		port.Protocol = corev1.Protocol(p.Protocol)
	}
	target := p.TargetPort
	if target == 0 {
		target = p.Port
	}
	port.TargetPort = intstr.FromInt32(target)
	if p.NodePort != 0 {
		port.NodePort = p.NodePort
	}
	s.ports = append(s.ports, port)
	return s
}

// Select replaces the pod selector.
func (s *Service) Select(selector map[string]string) *Service {
	s.selector = naming.MergeLabels(selector)
	return s
}

// Selector returns the live selector map.
func (s *Service) Selector() map[string]string {
	return s.selector
}

// Validate checks the metadata grammar and the port ranges.
func (s *Service) Validate() []validation.Problem {
	problems := s.Base.Validate()
	for _, port := range s.ports {
		if port.Port < 1 || port.Port > 65535 {
			problems = append(problems, validation.Errorf(s.TreeNode().Path(), CodeInvalidPort,
				"service port %d is outside 1-65535", port.Port))
		}
	}
	return problems
}

// Document renders the service document.
func (s *Service) Document() (*unstructured.Unstructured, error) {
	svc := &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: s.APIVersion(),
			Kind:       s.Kind(),
		},
		ObjectMeta: s.ObjectMeta(),
		Spec: corev1.ServiceSpec{
			Type:     s.serviceType,
			Selector: s.selector,
			Ports:    s.ports,
		},
	}
	return toDocument(svc)
}
