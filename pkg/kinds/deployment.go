package kinds

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/graph"
	"github.com/chazu/tryworks/pkg/manifest"
	"github.com/chazu/tryworks/pkg/validation"
)

// Problem codes reported by the workload and networking kinds.
const (
	CodeMissingImage = "MISSING_IMAGE"
	CodeInvalidPort  = "INVALID_PORT"
	CodeInvalidHost  = "INVALID_HOST"
)

// DeploymentProps configures a Deployment construct.
type DeploymentProps struct {
	// Name overrides the generated name.
	Name string

	// Image is the container image. Required for a valid document.
	Image string

	// Replicas defaults to 1 when nil.
	Replicas *int32

	// ContainerPort exposes one container port when non-zero.
	ContainerPort int32

	// Env seeds the container environment; more entries can be added
	// with AddEnv and the AddEnvFrom variants.
	Env []corev1.EnvVar

	Labels      map[string]string
	Annotations map[string]string
}

// Deployment is a workload document built from the typed API structs. It
// reports the config and secret sources wired into it as dependency
// hints.
type Deployment struct {
	manifest.Base

	image              string
	replicas           int32
	containerPort      int32
	env                []corev1.EnvVar
	envFrom            []corev1.EnvFromSource
	serviceAccountName string
	hints              []graph.Hint
}

// NewDeployment creates a Deployment construct under owner.
func NewDeployment(owner construct.Construct, id string, props DeploymentProps) (*Deployment, error) {
	d := &Deployment{
		image:         props.Image,
		replicas:      1,
		containerPort: props.ContainerPort,
		env:           append([]corev1.EnvVar(nil), props.Env...),
	}
	if props.Replicas != nil {
		d.replicas = *props.Replicas
	}
	base, err := manifest.NewBase(d, owner, id, manifest.BaseConfig{
		APIVersion:  "apps/v1",
		Kind:        "Deployment",
		Name:        props.Name,
		Labels:      props.Labels,
		Annotations: props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	d.Base = *base
	return d, nil
}

// SelectorLabels returns the labels the workload's pods are selected by.
func (d *Deployment) SelectorLabels() map[string]string {
	return map[string]string{manifest.LabelName: d.Name()}
}

// AddEnv appends one literal environment variable.
func (d *Deployment) AddEnv(name, value string) *Deployment {
	d.env = append(d.env, corev1.EnvVar{Name: name, Value: value})
	return d
}

// AddEnvFrom wires the whole config map into the container environment
// and records the runtime dependency.
func (d *Deployment) AddEnvFrom(cm *ConfigMap) *Deployment {
	d.envFrom = append(d.envFrom, corev1.EnvFromSource{
		ConfigMapRef: &corev1.ConfigMapEnvSource{
			LocalObjectReference: corev1.LocalObjectReference{Name: cm.Name()},
		},
	})
	d.hints = append(d.hints, graph.Hint{
		Dependent:   d,
		Dependency:  cm,
		Type:        graph.EdgeRuntimeReference,
		Description: "environment from config",
	})
	return d
}

// AddEnvFromSecret wires the whole secret into the container environment
// and records the runtime dependency.
func (d *Deployment) AddEnvFromSecret(sec *Secret) *Deployment {
	d.envFrom = append(d.envFrom, corev1.EnvFromSource{
		SecretRef: &corev1.SecretEnvSource{
			LocalObjectReference: corev1.LocalObjectReference{Name: sec.Name()},
		},
	})
	d.hints = append(d.hints, graph.Hint{
		Dependent:   d,
		Dependency:  sec,
		Type:        graph.EdgeRuntimeReference,
		Description: "environment from secret",
	})
	return d
}

// UseServiceAccount runs the pods as the given identity and records the
// dependency.
func (d *Deployment) UseServiceAccount(sa *ServiceAccount) *Deployment {
	d.serviceAccountName = sa.Name()
	d.hints = append(d.hints, graph.Hint{
		Dependent:   d,
		Dependency:  sa,
		Type:        graph.EdgeRuntimeReference,
		Description: "pod identity",
	})
	return d
}

// DependencyHints reports the sources wired into this workload.
func (d *Deployment) DependencyHints() []graph.Hint {
	out := make([]graph.Hint, len(d.hints))
	copy(out, d.hints)
	return out
}

// Validate checks the metadata grammar, the image, and the port range.
func (d *Deployment) Validate() []validation.Problem {
	problems := d.Base.Validate()
	if d.image == "" {
		problems = append(problems, validation.Errorf(d.TreeNode().Path(), CodeMissingImage,
			"deployment has no container image"))
	}
	if d.containerPort != 0 && (d.containerPort < 1 || d.containerPort > 65535) {
		problems = append(problems, validation.Errorf(d.TreeNode().Path(), CodeInvalidPort,
			"container port %d is outside 1-65535", d.containerPort))
	}
	return problems
}

// Document renders the workload document.
func (d *Deployment) Document() (*unstructured.Unstructured, error) {
	container := corev1.Container{
		Name:    d.Name(),
		Image:   d.image,
		Env:     d.env,
		EnvFrom: d.envFrom,
	}
	if d.containerPort != 0 {
		container.Ports = []corev1.ContainerPort{{ContainerPort: d.containerPort}}
	}

	replicas := d.replicas
	dep := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: d.APIVersion(),
			Kind:       d.Kind(),
		},
		ObjectMeta: d.ObjectMeta(),
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: d.SelectorLabels()},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: d.SelectorLabels()},
				Spec: corev1.PodSpec{
					ServiceAccountName: d.serviceAccountName,
					Containers:         []corev1.Container{container},
				},
			},
		},
	}
	return toDocument(dep)
}
