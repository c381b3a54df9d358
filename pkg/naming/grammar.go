package naming

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ValidateResourceName checks name against the DNS-1123 label grammar:
// at most 63 characters, lowercase alphanumerics and hyphens, starting
// and ending with an alphanumeric. Violations are returned as
// human-readable strings; a nil result means the name is valid.
func ValidateResourceName(name string) []string {
	var out []string
	for _, msg := range validation.IsDNS1123Label(name) {
		out = append(out, fmt.Sprintf("name %q %s", name, msg))
	}
	return out
}

// ValidateNamespace checks a namespace name against the DNS-1123 label
// grammar.
func ValidateNamespace(namespace string) []string {
	var out []string
	for _, msg := range validation.IsDNS1123Label(namespace) {
		out = append(out, fmt.Sprintf("namespace %q %s", namespace, msg))
	}
	return out
}

// ValidateSubdomain checks host against the DNS-1123 subdomain grammar
// used for ingress hosts and service FQDNs.
func ValidateSubdomain(host string) []string {
	var out []string
	for _, msg := range validation.IsDNS1123Subdomain(host) {
		out = append(out, fmt.Sprintf("host %q %s", host, msg))
	}
	return out
}

// ValidateLabelKey checks key against the qualified-name grammar
// (optional DNS-subdomain prefix, slash, name part).
func ValidateLabelKey(key string) []string {
	var out []string
	for _, msg := range validation.IsQualifiedName(key) {
		out = append(out, fmt.Sprintf("label key %q %s", key, msg))
	}
	return out
}

// ValidateLabelValue checks value against the label value grammar.
func ValidateLabelValue(value string) []string {
	var out []string
	for _, msg := range validation.IsValidLabelValue(value) {
		out = append(out, fmt.Sprintf("label value %q %s", value, msg))
	}
	return out
}

// ValidateLabels checks every entry of a label map, keys and values both.
// Entries are visited in sorted key order so the report is stable.
func ValidateLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		out = append(out, ValidateLabelKey(k)...)
		out = append(out, ValidateLabelValue(labels[k])...)
	}
	return out
}
