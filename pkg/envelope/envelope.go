// Package envelope wraps validated records with Kubernetes identity
// metadata.
package envelope

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/crossplane/function-crd-record/pkg/errors"
	recordschema "github.com/crossplane/function-crd-record/pkg/schema"
)

// Metadata is the identity of an envelope
type Metadata struct {
	Name        string
	Namespace   string
	Labels      map[string]string
	Annotations map[string]string
}

// Envelope is a record plus the identity it would be exchanged under
type Envelope struct {
	APIVersion string
	Kind       string
	Metadata   Metadata
	Spec       *recordschema.Record
}

// New validates the identity metadata and wraps spec. The envelope is not
// mutated after construction. Every output is a copy.
func New(apiVersion, kind string, meta Metadata, spec *recordschema.Record) (*Envelope, error) {
	gv, err := schema.ParseGroupVersion(apiVersion)
	if err != nil || gv.Version == "" {
		return nil, errors.InvalidEnvelopeError("apiVersion must be group/version").
			WithField("apiVersion").
			WithContext("apiVersion", apiVersion).
			WithCause(err)
	}
	if kind == "" {
		return nil, errors.InvalidEnvelopeError("kind is required").WithField("kind")
	}
	if msgs := validation.IsDNS1123Subdomain(meta.Name); len(msgs) > 0 {
		return nil, errors.InvalidEnvelopeError(strings.Join(msgs, "; ")).
			WithField("metadata.name").
			WithContext("name", meta.Name)
	}
	if meta.Namespace != "" {
		if msgs := validation.IsDNS1123Label(meta.Namespace); len(msgs) > 0 {
			return nil, errors.InvalidEnvelopeError(strings.Join(msgs, "; ")).
				WithField("metadata.namespace").
				WithContext("namespace", meta.Namespace)
		}
	}
	if spec == nil {
		return nil, errors.InvalidEnvelopeError("spec record is required").WithField("spec")
	}

	return &Envelope{
		APIVersion: apiVersion,
		Kind:       kind,
		Metadata: Metadata{
			Name:        meta.Name,
			Namespace:   meta.Namespace,
			Labels:      copyStrings(meta.Labels),
			Annotations: copyStrings(meta.Annotations),
		},
		Spec: spec.DeepCopy(),
	}, nil
}

// GroupVersionKind returns the envelope's GVK
func (e *Envelope) GroupVersionKind() schema.GroupVersionKind {
	return schema.FromAPIVersionAndKind(e.APIVersion, e.Kind)
}

// Object returns the external representation
//
//	{apiVersion, kind, metadata: {name, namespace?}, spec}
func (e *Envelope) Object() map[string]any {
	meta := map[string]any{"name": e.Metadata.Name}
	if e.Metadata.Namespace != "" {
		meta["namespace"] = e.Metadata.Namespace
	}
	if len(e.Metadata.Labels) > 0 {
		meta["labels"] = stringMap(e.Metadata.Labels)
	}
	if len(e.Metadata.Annotations) > 0 {
		meta["annotations"] = stringMap(e.Metadata.Annotations)
	}

	return map[string]any{
		"apiVersion": e.APIVersion,
		"kind":       e.Kind,
		"metadata":   meta,
		"spec":       e.Spec.Object(),
	}
}

// Unstructured returns the envelope as an unstructured object
func (e *Envelope) Unstructured() *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: e.Object()}
}

// FromUnstructured reads an envelope back, validating its spec against s
func FromUnstructured(u *unstructured.Unstructured, s *recordschema.Schema) (*Envelope, error) {
	if u == nil {
		return nil, errors.InvalidEnvelopeError("object is nil")
	}

	var values map[string]any
	if raw, ok := u.Object["spec"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.KindMismatchError("spec", "object", fmt.Sprintf("%T", raw))
		}
		values = m
	}

	spec, err := s.New(values)
	if err != nil {
		return nil, errors.Wrap(err, "invalid envelope spec")
	}

	return New(u.GetAPIVersion(), u.GetKind(), Metadata{
		Name:        u.GetName(),
		Namespace:   u.GetNamespace(),
		Labels:      u.GetLabels(),
		Annotations: u.GetAnnotations(),
	}, spec)
}

func copyStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func stringMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
