// Package naming derives deterministic, DNS-compliant names from construct
// tree paths, resolves sibling name collisions, merges label layers in
// precedence order, and wraps the Kubernetes identifier grammars.
package naming

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultSeparator joins path segments in generated names.
	DefaultSeparator = "-"

	// DefaultMaxLength is the DNS-1123 label length limit.
	DefaultMaxLength = 63

	// DefaultHashLength is the number of digest characters appended when
	// an over-length name is truncated.
	DefaultHashLength = 5

	// fallbackName stands in for names that sanitize to nothing.
	fallbackName = "resource"
)

// Options control name generation. The zero value is usable: zero or
// empty fields fall back to the defaults.
type Options struct {
	// Separator joins path segments.
	Separator string

	// MaxLength is the longest name to emit.
	MaxLength int

	// PreserveCase keeps the original casing instead of lower-casing.
	// Preserved-case names are checked against the case-insensitive
	// label grammar; Kubernetes itself rejects uppercase names, so this
	// is for non-manifest consumers such as file prefixes.
	PreserveCase bool

	// DisableHash hard-truncates over-length names instead of replacing
	// the tail with a digest of the full path.
	DisableHash bool

	// HashLength is the number of digest characters to append.
	HashLength int
}

// DefaultOptions returns the naming options used by resource constructs.
func DefaultOptions() Options {
	return Options{
		Separator:  DefaultSeparator,
		MaxLength:  DefaultMaxLength,
		HashLength: DefaultHashLength,
	}
}

func (o Options) withDefaults() Options {
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.MaxLength == 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.HashLength == 0 {
		o.HashLength = DefaultHashLength
	}
	return o
}

var (
	dnsLabelPattern       = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	dnsLabelPatternAnyCase = regexp.MustCompile(`^[A-Za-z0-9]([-A-Za-z0-9]*[A-Za-z0-9])?$`)
)

// GenerateName derives a name from a construct tree path. The same path
// and options always produce the same name, and the result satisfies the
// DNS label grammar under the default options.
//
// Path segments are joined with the separator, lower-cased unless
// Options.PreserveCase is set, and sanitized to the label alphabet.
// Names longer than Options.MaxLength keep a leading slice of the
// sanitized name and replace the tail with a short digest of the full
// path, so distinct long paths stay distinct after truncation.
func GenerateName(path string, opts Options) string {
	opts = opts.withDefaults()

	name := strings.Join(strings.Split(path, "/"), opts.Separator)
	if !opts.PreserveCase {
		name = strings.ToLower(name)
	}
	name = sanitize(name, opts.Separator, opts.PreserveCase)
	if name == "" {
		name = fallbackName
	}

	if len(name) > opts.MaxLength {
		if opts.DisableHash {
			name = strings.Trim(name[:opts.MaxLength], opts.Separator)
		} else {
			keep := opts.MaxLength - opts.HashLength - 1
			if keep < 1 {
				keep = 1
			}
			prefix := strings.TrimRight(name[:keep], opts.Separator)
			name = prefix + "-" + shortHash(path, opts.HashLength)
		}
	}

	pattern := dnsLabelPattern
	if opts.PreserveCase {
		pattern = dnsLabelPatternAnyCase
	}
	if !pattern.MatchString(name) {
		name = sanitize(strings.ToLower(fallbackName+"-"+name), "-", false)
		if len(name) > opts.MaxLength {
			name = strings.Trim(name[:opts.MaxLength], "-")
		}
	}
	return name
}

// sanitize replaces every character outside the label alphabet with sep,
// collapses runs of sep, and strips it from both ends.
func sanitize(s, sep string, preserveCase bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case preserveCase && r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteString(sep)
		}
	}
	out := b.String()
	if sep != "" {
		double := sep + sep
		for strings.Contains(out, double) {
			out = strings.ReplaceAll(out, double, sep)
		}
		out = strings.Trim(out, sep)
	}
	return out
}

// shortHash returns a base-36 digest of s truncated to n characters. A
// rolling polynomial is enough here: the digest only has to keep long
// sibling paths distinct, not resist collisions from an adversary.
func shortHash(s string, n int) string {
	var h uint64
	for _, r := range s {
		h = h*31 + uint64(r)
	}
	digest := strconv.FormatUint(h, 36)
	if len(digest) > n {
		digest = digest[:n]
	}
	return digest
}
