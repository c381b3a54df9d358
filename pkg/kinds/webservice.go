package kinds

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/graph"
)

// Default ports for web service composites.
const (
	DefaultContainerPort = int32(8080)
	DefaultServicePort   = int32(80)
)

// WebServiceProps configures a WebService composite.
type WebServiceProps struct {
	// Image is the container image the workload runs.
	Image string

	// Replicas defaults to 1 when nil.
	Replicas *int32

	// Port is the container port, DefaultContainerPort when zero.
	Port int32

	// ServicePort is the port the service listens on,
	// DefaultServicePort when zero.
	ServicePort int32

	// Config, when non-empty, creates a config map whose entries are
	// injected into the workload environment.
	Config map[string]string

	// Env seeds additional literal environment variables.
	Env []corev1.EnvVar
}

// WebService is a composite of a workload, the service fronting it, and
// an optional config map feeding it. The wiring between the parts is
// reported through dependency hints.
type WebService struct {
	node *construct.Node

	config     *ConfigMap
	deployment *Deployment
	service    *Service
}

// NewWebService assembles the composite under owner.
func NewWebService(owner construct.Construct, id string, props WebServiceProps) (*WebService, error) {
	w := &WebService{}
	node, err := construct.NewNode(w, owner, id)
	if err != nil {
		return nil, err
	}
	w.node = node

	if len(props.Config) > 0 {
		cm, err := NewConfigMap(w, "config", ConfigMapProps{Data: props.Config})
		if err != nil {
			return nil, err
		}
		w.config = cm
	}

	port := props.Port
	if port == 0 {
		port = DefaultContainerPort
	}
	servicePort := props.ServicePort
	if servicePort == 0 {
		servicePort = DefaultServicePort
	}

	deploy, err := NewDeployment(w, "deployment", DeploymentProps{
		Image:         props.Image,
		Replicas:      props.Replicas,
		ContainerPort: port,
		Env:           props.Env,
	})
	if err != nil {
		return nil, err
	}
	if w.config != nil {
		deploy.AddEnvFrom(w.config)
	}
	w.deployment = deploy

	svc, err := NewService(w, "service", ServiceProps{
		Selector: deploy.SelectorLabels(),
		Ports: []ServicePortProps{{
			Port:       servicePort,
			TargetPort: port,
		}},
	})
	if err != nil {
		return nil, err
	}
	w.service = svc

	return w, nil
}

// TreeNode returns the composite's tree node.
func (w *WebService) TreeNode() *construct.Node {
	return w.node
}

// Config returns the config map part, nil when no config was given.
func (w *WebService) Config() *ConfigMap {
	return w.config
}

// Deployment returns the workload part.
func (w *WebService) Deployment() *Deployment {
	return w.deployment
}

// Service returns the service part.
func (w *WebService) Service() *Service {
	return w.service
}

// DependencyHints reports the edges implied by the composite's wiring:
// the service routes to the workload, and the workload is configured by
// the config map when one exists.
func (w *WebService) DependencyHints() []graph.Hint {
	hints := []graph.Hint{{
		Dependent:   w.service,
		Dependency:  w.deployment,
		Type:        graph.EdgeNetwork,
		Description: "routes traffic to the workload",
	}}
	if w.config != nil {
		hints = append(hints, graph.Hint{
			Dependent:   w.deployment,
			Dependency:  w.config,
			Type:        graph.EdgeConfiguration,
			Description: "workload reads its config",
		})
	}
	return hints
}
