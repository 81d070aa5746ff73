package service

import (
	"context"
	"fmt"

	"github.com/crossplane/crossplane-runtime/pkg/fieldpath"
	"github.com/crossplane/function-sdk-go/logging"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/crossplane/function-crd-record/input/v1beta1"
	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/envelope"
	"github.com/crossplane/function-crd-record/pkg/errors"
	"github.com/crossplane/function-crd-record/pkg/interfaces"
	"github.com/crossplane/function-crd-record/pkg/workload"
)

// LabelRecord marks resources rendered from a record
const LabelRecord = "crdrecord.fn.crossplane.io/record"

// Rendered is one resource template rendered against a composite resource
type Rendered struct {
	Name         string
	ResourceKind v1beta1.ResourceKind
	Object       *unstructured.Unstructured
	CacheHit     bool
}

// RendererService validates composite resource values against the schema
// of each resource template and wraps the result in an envelope or workload.
type RendererService struct {
	logger           logging.Logger
	schemas          interfaces.SchemaProvider
	maxDepth         int
	defaultFieldPath string
}

// NewRendererService creates a new renderer service
func NewRendererService(logger logging.Logger, schemas interfaces.SchemaProvider, maxDepth int, defaultFieldPath string) *RendererService {
	return &RendererService{
		logger:           logger,
		schemas:          schemas,
		maxDepth:         maxDepth,
		defaultFieldPath: defaultFieldPath,
	}
}

// RenderAll renders every template with at most limit renders in flight.
// Results keep template order. The first failure cancels the rest and is
// returned.
func (s *RendererService) RenderAll(ctx context.Context, xr *unstructured.Unstructured, templates []v1beta1.ResourceTemplate, limit int) ([]*Rendered, error) {
	seen := make(map[string]bool, len(templates))
	for i, t := range templates {
		if t.Name == "" {
			return nil, errors.ValidationError("resource name is required").WithField(fmt.Sprintf("resources[%d].name", i))
		}
		if seen[t.Name] {
			return nil, errors.ValidationError("duplicate resource name").
				WithField(fmt.Sprintf("resources[%d].name", i)).
				WithContext("resource", t.Name)
		}
		seen[t.Name] = true
	}

	out := make([]*Rendered, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range templates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := s.Render(gctx, xr, &templates[i])
			if err != nil {
				return errors.Wrapf(err, "cannot render resource %q", templates[i].Name)
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Render renders one template
func (s *RendererService) Render(_ context.Context, xr *unstructured.Unstructured, t *v1beta1.ResourceTemplate) (*Rendered, error) {
	d, err := descriptor.FromFields(t.Fields)
	if err != nil {
		return nil, err
	}

	sch, hit, err := s.schemas.Schema(d, s.maxDepth)
	if err != nil {
		return nil, err
	}

	path := s.defaultFieldPath
	if t.FromFieldPath != nil && *t.FromFieldPath != "" {
		path = *t.FromFieldPath
	}
	values, err := valuesAt(xr, path)
	if err != nil {
		return nil, err
	}

	rec, err := sch.New(values)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Record validated",
		"resource", t.Name,
		"fromFieldPath", path,
		"fields", sch.Len(),
		"cacheHit", hit)

	name, namespace := identity(xr, t)
	kind := t.ResourceKind
	if kind == "" {
		kind = v1beta1.ResourceKindCustom
	}

	var obj *unstructured.Unstructured
	switch kind {
	case v1beta1.ResourceKindCustom:
		e, err := envelope.New(t.APIVersion, t.Kind, envelope.Metadata{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{LabelRecord: t.Name},
		}, rec)
		if err != nil {
			return nil, err
		}
		obj = e.Unstructured()

	case v1beta1.ResourceKindPod, v1beta1.ResourceKindDeployment, v1beta1.ResourceKindJob:
		w, err := workload.FromRecord(workload.ResourceKind(kind), workload.Meta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{LabelRecord: t.Name},
		}, rec)
		if err != nil {
			return nil, err
		}
		if obj, err = w.Unstructured(); err != nil {
			return nil, err
		}

	default:
		return nil, errors.ValidationError(fmt.Sprintf("unsupported resourceKind %q", kind)).WithField("resourceKind")
	}

	return &Rendered{Name: t.Name, ResourceKind: kind, Object: obj, CacheHit: hit}, nil
}

// valuesAt reads the field values at path. A missing path means no values.
func valuesAt(xr *unstructured.Unstructured, path string) (map[string]any, error) {
	v, err := fieldpath.Pave(xr.Object).GetValue(path)
	if fieldpath.IsNotFound(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, errors.ValidationError("invalid fromFieldPath").WithField(path).WithCause(err)
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.KindMismatchError(path, "object", fmt.Sprintf("%T", v))
	}
	return m, nil
}

func identity(xr *unstructured.Unstructured, t *v1beta1.ResourceTemplate) (string, string) {
	name, namespace := xr.GetName(), xr.GetNamespace()
	if t.Metadata != nil {
		if t.Metadata.Name != "" {
			name = t.Metadata.Name
		}
		if t.Metadata.Namespace != nil {
			namespace = *t.Metadata.Namespace
		}
	}
	return name, namespace
}
