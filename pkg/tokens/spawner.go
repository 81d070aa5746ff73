package tokens

import (
	"context"
	"fmt"
	"sync"

	"github.com/crossplane/function-sdk-go/logging"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	"github.com/crossplane/function-crd-record/pkg/errors"
	"github.com/crossplane/function-crd-record/pkg/workload"
)

const (
	DefaultImage         = "busybox"
	DefaultNamespace     = "default"
	DefaultContainerName = "spawned-container"
)

// DefaultCommand is what a spawned pod runs unless configured otherwise
var DefaultCommand = []string{"echo", "Hello from spawned Pod!"}

// Sink receives the pods the walk decides to create
type Sink interface {
	Create(ctx context.Context, w *workload.Workload) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(ctx context.Context, w *workload.Workload) error

// Create calls f
func (f SinkFunc) Create(ctx context.Context, w *workload.Workload) error {
	return f(ctx, w)
}

// Collector is a Sink that keeps every valid workload it receives
type Collector struct {
	mu        sync.Mutex
	workloads []*workload.Workload
}

// Create validates and records w
func (c *Collector) Create(_ context.Context, w *workload.Workload) error {
	if err := w.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workloads = append(c.workloads, w)
	return nil
}

// Workloads returns the collected workloads in creation order
func (c *Collector) Workloads() []*workload.Workload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*workload.Workload(nil), c.workloads...)
}

// Template shapes every spawned pod
type Template struct {
	Image         string
	Command       []string
	Namespace     string
	ContainerName string
}

// DefaultTemplate returns the busybox echo pod template
func DefaultTemplate() Template {
	return Template{
		Image:         DefaultImage,
		Command:       append([]string(nil), DefaultCommand...),
		Namespace:     DefaultNamespace,
		ContainerName: DefaultContainerName,
	}
}

// Owner identifies the object spawned pods belong to
type Owner struct {
	APIVersion string
	Kind       string
	Name       string
	UID        string
}

// OwnerOf reads the owner identity of an object
func OwnerOf(u *unstructured.Unstructured) Owner {
	return Owner{
		APIVersion: u.GetAPIVersion(),
		Kind:       u.GetKind(),
		Name:       u.GetName(),
		UID:        string(u.GetUID()),
	}
}

// Result summarizes one Handle call
type Result struct {
	Visited int
	Spawned int
	Failed  int
	Errors  []error
}

// Spawner logs every token and creates a pod for each SPAWN token
type Spawner struct {
	log      logging.Logger
	sink     Sink
	template Template
}

// Option configures a Spawner
type Option func(*Spawner)

// WithTemplate overrides the non-empty parts of the default pod template
func WithTemplate(t Template) Option {
	return func(s *Spawner) {
		if t.Image != "" {
			s.template.Image = t.Image
		}
		if len(t.Command) > 0 {
			s.template.Command = append([]string(nil), t.Command...)
		}
		if t.Namespace != "" {
			s.template.Namespace = t.Namespace
		}
		if t.ContainerName != "" {
			s.template.ContainerName = t.ContainerName
		}
	}
}

// NewSpawner creates a Spawner that sends pods to sink
func NewSpawner(log logging.Logger, sink Sink, opts ...Option) *Spawner {
	s := &Spawner{log: log, sink: sink, template: DefaultTemplate()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle walks tokens in order. Every leaf is logged; every SPAWN leaf
// issues one create. There is no deduplication: n SPAWN tokens create n
// pods. A failed create is logged and counted and the walk continues. The
// walk stops only when ctx is done.
func (s *Spawner) Handle(ctx context.Context, owner Owner, tokens any) Result {
	var res Result

	err := Walk(tokens, func(t Token) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		res.Visited++
		s.log.Info("Token found", "token", fmt.Sprintf("%v", t.Value), "path", fmt.Sprintf("%v", t.Path))
		if !t.IsSpawn() {
			return nil
		}

		w := s.Pod(owner)
		if err := s.sink.Create(ctx, w); err != nil {
			spawnErr := errors.SpawnFailedError("cannot create pod").
				WithContext("owner", owner.Name).
				WithContext("path", fmt.Sprintf("%v", t.Path)).
				WithCause(err)
			s.log.Info("Failed to spawn Pod", "owner", owner.Name, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, spawnErr)
			return nil
		}

		res.Spawned++
		s.log.Info("Pod spawned as a child of its owner", "owner", owner.Name, "generateName", w.GenerateName)
		return nil
	})
	if err != nil {
		res.Errors = append(res.Errors, errors.Wrap(err, "token walk interrupted"))
	}

	return res
}

// Pod returns the workload spawned for owner
func (s *Spawner) Pod(owner Owner) *workload.Workload {
	w := &workload.Workload{
		ResourceKind: workload.KindPod,
		Meta: workload.Meta{
			GenerateName: owner.Name + "-",
			Namespace:    s.template.Namespace,
		},
		ContainerName: s.template.ContainerName,
		Image:         s.template.Image,
		Command:       append([]string(nil), s.template.Command...),
	}
	if owner.Name != "" && owner.Kind != "" {
		w.Owner = &metav1.OwnerReference{
			APIVersion: owner.APIVersion,
			Kind:       owner.Kind,
			Name:       owner.Name,
			UID:        types.UID(owner.UID),
		}
	}
	return w
}
