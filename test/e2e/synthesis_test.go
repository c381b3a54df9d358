package e2e

import (
	"errors"
	"os"
	"slices"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/graph"
	"github.com/chazu/tryworks/pkg/kinds"
	"github.com/chazu/tryworks/pkg/manifest"
	"github.com/chazu/tryworks/pkg/schema"
	"github.com/chazu/tryworks/pkg/synth"
	"github.com/chazu/tryworks/pkg/writer"
)

const dnsLabel = `^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`

// buildShop assembles the reference tree driven by the pipeline specs: one
// production stack holding a config-backed web service.
func buildShop() (*synth.App, *kinds.WebService) {
	app := synth.NewApp("shop")
	stack, err := manifest.NewStack(app, "prod", manifest.StackProps{
		Namespace: "prod",
		Labels:    map[string]string{"env": "production"},
	})
	Expect(err).NotTo(HaveOccurred())

	web, err := kinds.NewWebService(stack, "site", kinds.WebServiceProps{
		Image:  "nginx:1.27",
		Config: map[string]string{"LOG_LEVEL": "info"},
	})
	Expect(err).NotTo(HaveOccurred())
	return app, web
}

func namesOf(docs []*unstructured.Unstructured) []string {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.GetName()
	}
	return names
}

func indexOfKind(docs []*unstructured.Unstructured, kind string) int {
	for i, doc := range docs {
		if doc.GetKind() == kind {
			return i
		}
	}
	return -1
}

var _ = Describe("Synthesis", func() {
	Context("determinism", func() {
		It("should produce the same documents and hash on every run", func() {
			appA, _ := buildShop()
			appB, _ := buildShop()

			resultA, err := appA.Synth()
			Expect(err).NotTo(HaveOccurred())
			resultB, err := appB.Synth()
			Expect(err).NotTo(HaveOccurred())

			Expect(namesOf(resultB.Documents)).To(Equal(namesOf(resultA.Documents)))
			Expect(resultB.Hash).To(Equal(resultA.Hash))
			Expect(resultB.HasChanged(resultA.Hash)).To(BeFalse())
		})
	})

	Context("generated names", func() {
		It("should emit DNS-compliant names for awkward construct ids", func() {
			app := synth.NewApp("shop")
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{Namespace: "prod"})
			Expect(err).NotTo(HaveOccurred())
			_, err = kinds.NewConfigMap(stack, "User_Settings.v2", kinds.ConfigMapProps{
				Data: map[string]string{"theme": "dark"},
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := app.Synth()
			Expect(err).NotTo(HaveOccurred())

			for _, doc := range result.Documents {
				Expect(doc.GetName()).To(MatchRegexp(dnsLabel))
				Expect(len(doc.GetName())).To(BeNumerically("<=", 63))
			}
		})

		It("should keep long sibling paths distinct after truncation", func() {
			app := synth.NewApp("shop")
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{Namespace: "prod"})
			Expect(err).NotTo(HaveOccurred())

			long := strings.Repeat("data-segment-", 6)
			first, err := kinds.NewConfigMap(stack, "alpha-"+long, kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())
			second, err := kinds.NewConfigMap(stack, "beta-"+long, kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Name()).To(MatchRegexp(dnsLabel))
			Expect(second.Name()).To(MatchRegexp(dnsLabel))
			Expect(len(first.Name())).To(BeNumerically("<=", 63))
			Expect(len(second.Name())).To(BeNumerically("<=", 63))
			Expect(first.Name()).NotTo(Equal(second.Name()))
		})

		It("should suffix the second sibling that resolves to a taken name", func() {
			app := synth.NewApp("shop")
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{Namespace: "prod"})
			Expect(err).NotTo(HaveOccurred())

			// Distinct ids that lower-case to the same generated name.
			first, err := kinds.NewConfigMap(stack, "config", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())
			second, err := kinds.NewConfigMap(stack, "Config", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Name()).To(Equal(first.Name() + "-1"))

			_, err = app.Synth()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("construct ordering", func() {
		It("should place every dependency ahead of its dependents", func() {
			app, web := buildShop()
			stack := manifest.StackOf(web)
			secret, err := kinds.NewSecret(stack, "credentials", kinds.SecretProps{
				StringData: map[string]string{"token": "hunter2"},
			})
			Expect(err).NotTo(HaveOccurred())
			web.Deployment().AddEnvFromSecret(secret)

			nodes := slices.Collect(app.TreeNode().All())
			tracker := graph.NewTracker()
			tracker.AutoDetect(nodes)

			ordered, err := tracker.OrderedResources(nodes)
			Expect(err).NotTo(HaveOccurred())

			position := make(map[string]int, len(ordered))
			for i, res := range ordered {
				position[res.TreeNode().Path()] = i
			}

			for _, node := range nodes {
				for _, edge := range tracker.DependenciesOf(node) {
					depPath := edge.Dependency.TreeNode().Path()
					dependentPath := edge.Dependent.TreeNode().Path()
					Expect(position).To(HaveKey(depPath))
					Expect(position).To(HaveKey(dependentPath))
					Expect(position[depPath]).To(BeNumerically("<", position[dependentPath]),
						"%s must come before %s", depPath, dependentPath)
				}
			}
		})
	})

	Context("circular dependencies", func() {
		It("should reject a three-construct cycle", func() {
			app := synth.NewApp("rings")
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{Namespace: "prod"})
			Expect(err).NotTo(HaveOccurred())

			a, err := kinds.NewConfigMap(stack, "a", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())
			b, err := kinds.NewConfigMap(stack, "b", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())
			c, err := kinds.NewConfigMap(stack, "c", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())

			a.TreeNode().AddDependency(b)
			b.TreeNode().AddDependency(c)
			c.TreeNode().AddDependency(a)

			_, err = app.Synth()
			Expect(err).To(HaveOccurred())
			Expect(graph.IsCircularDependency(err)).To(BeTrue())
		})

		It("should report both constructs of a mutual dependency", func() {
			app := synth.NewApp("rings")
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{Namespace: "prod"})
			Expect(err).NotTo(HaveOccurred())

			a, err := kinds.NewConfigMap(stack, "a", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())
			b, err := kinds.NewConfigMap(stack, "b", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())

			a.TreeNode().AddDependency(b)
			b.TreeNode().AddDependency(a)

			_, err = app.Synth()
			Expect(err).To(HaveOccurred())

			var cde *graph.CircularDependencyError
			Expect(errors.As(err, &cde)).To(BeTrue())
			Expect(cde.Cycles).NotTo(BeEmpty())

			joined := strings.Join(cde.Cycles[0], " ")
			Expect(joined).To(ContainSubstring(a.TreeNode().Path()))
			Expect(joined).To(ContainSubstring(b.TreeNode().Path()))
		})
	})

	Context("metadata propagation", func() {
		It("should let a resource label override the stack layer", func() {
			app := synth.NewApp("shop")
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{
				Namespace: "prod",
				Labels:    map[string]string{"env": "staging", "tier": "web"},
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = kinds.NewConfigMap(stack, "settings", kinds.ConfigMapProps{
				Labels: map[string]string{"env": "production"},
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := app.Synth()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Documents).To(HaveLen(1))

			labels := result.Documents[0].GetLabels()
			Expect(labels["env"]).To(Equal("production"))
			Expect(labels["tier"]).To(Equal("web"))
			Expect(labels[manifest.LabelManagedBy]).To(Equal(manifest.ManagedByValue))
		})

		It("should keep a namespace pinned on the resource itself", func() {
			app := synth.NewApp("shop")
			stack, err := manifest.NewStack(app, "scope", manifest.StackProps{Namespace: "ns-a"})
			Expect(err).NotTo(HaveOccurred())

			pinned, err := kinds.NewConfigMap(stack, "pinned", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())
			pinned.Metadata().Namespace = "ns-b"
			_, err = kinds.NewConfigMap(stack, "inherited", kinds.ConfigMapProps{})
			Expect(err).NotTo(HaveOccurred())

			result, err := app.Synth()
			Expect(err).NotTo(HaveOccurred())

			byName := make(map[string]*unstructured.Unstructured, len(result.Documents))
			for _, doc := range result.Documents {
				byName[doc.GetName()] = doc
			}
			Expect(byName["shop-scope-pinned"].GetNamespace()).To(Equal("ns-b"))
			Expect(byName["shop-scope-inherited"].GetNamespace()).To(Equal("ns-a"))
		})
	})

	Context("a configured web service", func() {
		It("should synthesize three documents with config ahead of the workload", func() {
			app, web := buildShop()

			result, err := app.Synth()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Documents).To(HaveLen(3))

			By("placing the config before the workload it feeds")
			configIdx := indexOfKind(result.Documents, "ConfigMap")
			workloadIdx := indexOfKind(result.Documents, "Deployment")
			Expect(configIdx).To(BeNumerically(">=", 0))
			Expect(workloadIdx).To(BeNumerically(">=", 0))
			Expect(configIdx).To(BeNumerically("<", workloadIdx))
			Expect(synth.Priority("ConfigMap")).To(BeNumerically("<", synth.Priority("Deployment")))

			By("selecting the workload's pods from the service")
			svcIdx := indexOfKind(result.Documents, "Service")
			Expect(svcIdx).To(BeNumerically(">=", 0))
			selector, found, err := unstructured.NestedStringMap(result.Documents[svcIdx].Object, "spec", "selector")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(selector).To(Equal(web.Deployment().SelectorLabels()))

			By("namespacing every document to the stack")
			for _, doc := range result.Documents {
				Expect(doc.GetNamespace()).To(Equal("prod"))
			}
		})
	})

	Context("schema checking", func() {
		It("should pass documents of unregistered kinds", func() {
			registry := schema.NewSeededRegistry()
			doc := &unstructured.Unstructured{Object: map[string]interface{}{
				"apiVersion": "example.com/v1",
				"kind":       "Widget",
				"metadata":   map[string]interface{}{"name": "widget"},
			}}

			result := registry.ValidateManifest(doc)
			Expect(result.Valid()).To(BeTrue())
			Expect(result.Problems).To(BeEmpty())
		})

		It("should synthesize kinds shaped by the embedded module cleanly", func() {
			app := synth.NewApp("platform")
			_, err := kinds.NewNamespace(app, "prod-ns", kinds.NamespaceProps{Name: "prod"})
			Expect(err).NotTo(HaveOccurred())
			stack, err := manifest.NewStack(app, "prod", manifest.StackProps{Namespace: "prod"})
			Expect(err).NotTo(HaveOccurred())
			_, err = kinds.NewSecret(stack, "credentials", kinds.SecretProps{
				StringData: map[string]string{"token": "hunter2"},
			})
			Expect(err).NotTo(HaveOccurred())

			registry := schema.NewSeededRegistry()
			Expect(schema.RegisterEmbedded(registry)).To(Succeed())

			result, err := synth.NewSynthesizer(synth.Config{Schemas: registry}).Synth(app)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Documents).To(HaveLen(2))
			Expect(result.Documents[0].GetKind()).To(Equal("Namespace"))
		})
	})

	Context("writing to disk", func() {
		It("should write the ordered document stream to one file", func() {
			app, _ := buildShop()
			result, err := app.Synth()
			Expect(err).NotTo(HaveOccurred())

			dir := GinkgoT().TempDir()
			w := writer.New(writer.Config{Dir: dir})
			paths, err := w.Write(result.Documents)
			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(HaveLen(1))

			data, err := os.ReadFile(paths[0])
			Expect(err).NotTo(HaveOccurred())
			content := string(data)

			Expect(strings.Count(content, "---\n")).To(Equal(len(result.Documents)))
			Expect(strings.Index(content, "kind: ConfigMap")).To(BeNumerically("<", strings.Index(content, "kind: Service")))
			Expect(strings.Index(content, "kind: Service")).To(BeNumerically("<", strings.Index(content, "kind: Deployment")))
		})
	})
})
