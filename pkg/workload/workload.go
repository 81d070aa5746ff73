// Package workload renders records as typed Kubernetes workloads. One
// Workload type carries an explicit ResourceKind tag plus the fields relevant
// to that kind.
package workload

import (
	"fmt"
	"math"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/scheme"

	"github.com/crossplane/function-crd-record/pkg/errors"
	recordschema "github.com/crossplane/function-crd-record/pkg/schema"
)

// ResourceKind tags the Kubernetes object a workload renders to
type ResourceKind string

const (
	KindPod        ResourceKind = "Pod"
	KindDeployment ResourceKind = "Deployment"
	KindJob        ResourceKind = "Job"
)

// DefaultContainerName is used when a workload names no container
const DefaultContainerName = "main"

// LabelWorkload selects the pods of a rendered Deployment
const LabelWorkload = "crdrecord.fn.crossplane.io/workload"

// Meta is the identity of a workload
type Meta struct {
	Name         string
	GenerateName string
	Namespace    string
	Labels       map[string]string
	Owner        *metav1.OwnerReference
}

// Workload is a Pod, Deployment or Job
type Workload struct {
	ResourceKind ResourceKind
	Meta

	ContainerName string
	Image         string
	Command       []string
	Args          []string

	// Replicas applies to Deployments only
	Replicas *int32

	// BackoffLimit applies to Jobs only
	BackoffLimit *int32
}

// Validate checks that the workload's fields fit its resource kind
func (w *Workload) Validate() error {
	switch w.ResourceKind {
	case KindPod, KindDeployment, KindJob:
	default:
		return errors.InvalidWorkloadError(fmt.Sprintf("unsupported resource kind %q", w.ResourceKind)).
			WithField("resourceKind")
	}

	if w.Image == "" {
		return errors.InvalidWorkloadError("image is required").WithField("image")
	}
	if w.Name == "" && w.GenerateName == "" {
		return errors.InvalidWorkloadError("a name or generateName is required").WithField("metadata.name")
	}
	if w.Replicas != nil && w.ResourceKind != KindDeployment {
		return errors.InvalidWorkloadError("replicas only applies to a Deployment").
			WithField("replicas").
			WithKinds(string(KindDeployment), string(w.ResourceKind))
	}
	if w.Replicas != nil && *w.Replicas < 0 {
		return errors.InvalidWorkloadError("replicas must not be negative").WithField("replicas")
	}
	if w.BackoffLimit != nil && w.ResourceKind != KindJob {
		return errors.InvalidWorkloadError("backoffLimit only applies to a Job").
			WithField("backoffLimit").
			WithKinds(string(KindJob), string(w.ResourceKind))
	}
	if w.BackoffLimit != nil && *w.BackoffLimit < 0 {
		return errors.InvalidWorkloadError("backoffLimit must not be negative").WithField("backoffLimit")
	}
	return nil
}

// Object returns the typed Kubernetes object with its TypeMeta set
func (w *Workload) Object() (runtime.Object, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var obj runtime.Object
	switch w.ResourceKind {
	case KindPod:
		obj = &corev1.Pod{
			ObjectMeta: w.objectMeta(),
			Spec:       w.podSpec(corev1.RestartPolicyAlways),
		}
	case KindDeployment:
		selector := map[string]string{LabelWorkload: w.selectorValue()}
		obj = &appsv1.Deployment{
			ObjectMeta: w.objectMeta(),
			Spec: appsv1.DeploymentSpec{
				Replicas: w.Replicas,
				Selector: &metav1.LabelSelector{MatchLabels: selector},
				Template: corev1.PodTemplateSpec{
					ObjectMeta: metav1.ObjectMeta{Labels: w.podLabels(selector)},
					Spec:       w.podSpec(corev1.RestartPolicyAlways),
				},
			},
		}
	case KindJob:
		obj = &batchv1.Job{
			ObjectMeta: w.objectMeta(),
			Spec: batchv1.JobSpec{
				BackoffLimit: w.BackoffLimit,
				Template: corev1.PodTemplateSpec{
					ObjectMeta: metav1.ObjectMeta{Labels: copyLabels(w.Labels)},
					Spec:       w.podSpec(corev1.RestartPolicyNever),
				},
			},
		}
	}

	gvks, _, err := scheme.Scheme.ObjectKinds(obj)
	if err != nil || len(gvks) == 0 {
		return nil, errors.New(errors.ErrorCodeInternalError, "cannot resolve workload kind").
			WithContext("resourceKind", string(w.ResourceKind)).
			WithCause(err)
	}
	obj.GetObjectKind().SetGroupVersionKind(gvks[0])
	return obj, nil
}

// Unstructured returns the workload in the form composed resources use
func (w *Workload) Unstructured() (*unstructured.Unstructured, error) {
	obj, err := w.Object()
	if err != nil {
		return nil, err
	}

	m, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert workload to unstructured")
	}

	// fields the API server owns
	delete(m, "status")
	unstructured.RemoveNestedField(m, "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(m, "spec", "template", "metadata", "creationTimestamp")

	return &unstructured.Unstructured{Object: m}, nil
}

func (w *Workload) objectMeta() metav1.ObjectMeta {
	om := metav1.ObjectMeta{
		Name:         w.Name,
		GenerateName: w.GenerateName,
		Namespace:    w.Namespace,
		Labels:       copyLabels(w.Labels),
	}
	if w.Owner != nil {
		om.OwnerReferences = []metav1.OwnerReference{*w.Owner.DeepCopy()}
	}
	return om
}

func (w *Workload) podSpec(restart corev1.RestartPolicy) corev1.PodSpec {
	name := w.ContainerName
	if name == "" {
		name = DefaultContainerName
	}
	return corev1.PodSpec{
		RestartPolicy: restart,
		Containers: []corev1.Container{{
			Name:    name,
			Image:   w.Image,
			Command: append([]string(nil), w.Command...),
			Args:    append([]string(nil), w.Args...),
		}},
	}
}

func (w *Workload) selectorValue() string {
	if w.Name != "" {
		return w.Name
	}
	return w.GenerateName
}

func (w *Workload) podLabels(selector map[string]string) map[string]string {
	out := copyLabels(w.Labels)
	if out == nil {
		out = make(map[string]string, len(selector))
	}
	for k, v := range selector {
		out[k] = v
	}
	return out
}

func copyLabels(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// FromRecord projects the image, command, args, replicas and backoffLimit
// fields of a validated record onto a workload. Fields the record's schema
// does not declare are left unset.
func FromRecord(kind ResourceKind, meta Meta, r *recordschema.Record) (*Workload, error) {
	w := &Workload{ResourceKind: kind, Meta: meta}

	if v, ok := r.Get("image"); ok {
		s, ok := v.(string)
		if !ok {
			return nil, errors.KindMismatchError("image", "string", fmt.Sprintf("%T", v))
		}
		w.Image = s
	}
	if v, ok := r.Get("containerName"); ok {
		if s, ok := v.(string); ok {
			w.ContainerName = s
		}
	}

	var err error
	if w.Command, err = stringsField(r, "command"); err != nil {
		return nil, err
	}
	if w.Args, err = stringsField(r, "args"); err != nil {
		return nil, err
	}

	// zero means unset for kinds without the capability
	if w.Replicas, err = int32Field(r, "replicas", kind == KindDeployment); err != nil {
		return nil, err
	}
	if w.BackoffLimit, err = int32Field(r, "backoffLimit", kind == KindJob); err != nil {
		return nil, err
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func stringsField(r *recordschema.Record, name string) ([]string, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.KindMismatchError(name, "array", fmt.Sprintf("%T", v))
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.KindMismatchError(fmt.Sprintf("%s[%d]", name, i), "string", fmt.Sprintf("%T", item))
		}
		out = append(out, s)
	}
	return out, nil
}

func int32Field(r *recordschema.Record, name string, capable bool) (*int32, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, nil
	}
	n, ok := v.(int64)
	if !ok {
		return nil, errors.KindMismatchError(name, "integer", fmt.Sprintf("%T", v))
	}
	if !capable && n == 0 {
		return nil, nil
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, errors.InvalidWorkloadError("value out of range").WithField(name)
	}
	i := int32(n)
	return &i, nil
}
