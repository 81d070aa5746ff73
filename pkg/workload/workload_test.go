package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/errors"
	"github.com/crossplane/function-crd-record/pkg/schema"
)

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		reason string
		w      Workload
		field  string
	}{
		"Pod": {
			reason: "A pod needs only an image and a name.",
			w:      Workload{ResourceKind: KindPod, Meta: Meta{Name: "p"}, Image: "busybox"},
		},
		"DeploymentReplicas": {
			reason: "Deployments carry replicas.",
			w:      Workload{ResourceKind: KindDeployment, Meta: Meta{Name: "d"}, Image: "nginx", Replicas: ptr.To[int32](2)},
		},
		"JobBackoff": {
			reason: "Jobs carry a backoff limit.",
			w:      Workload{ResourceKind: KindJob, Meta: Meta{GenerateName: "j-"}, Image: "busybox", BackoffLimit: ptr.To[int32](1)},
		},
		"UnknownKind": {
			reason: "Only Pod, Deployment and Job are supported.",
			w:      Workload{ResourceKind: "StatefulSet", Meta: Meta{Name: "s"}, Image: "nginx"},
			field:  "resourceKind",
		},
		"NoImage": {
			reason: "Every workload runs an image.",
			w:      Workload{ResourceKind: KindPod, Meta: Meta{Name: "p"}},
			field:  "image",
		},
		"NoName": {
			reason: "A name or a generate name is required.",
			w:      Workload{ResourceKind: KindPod, Image: "busybox"},
			field:  "metadata.name",
		},
		"ReplicasOnPod": {
			reason: "Replicas is a Deployment capability.",
			w:      Workload{ResourceKind: KindPod, Meta: Meta{Name: "p"}, Image: "busybox", Replicas: ptr.To[int32](2)},
			field:  "replicas",
		},
		"BackoffOnDeployment": {
			reason: "Backoff is a Job capability.",
			w:      Workload{ResourceKind: KindDeployment, Meta: Meta{Name: "d"}, Image: "nginx", BackoffLimit: ptr.To[int32](2)},
			field:  "backoffLimit",
		},
		"NegativeReplicas": {
			reason: "Replicas cannot be negative.",
			w:      Workload{ResourceKind: KindDeployment, Meta: Meta{Name: "d"}, Image: "nginx", Replicas: ptr.To[int32](-1)},
			field:  "replicas",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.w.Validate()
			if tc.field == "" {
				assert.NoError(t, err, tc.reason)
				return
			}
			require.Error(t, err, tc.reason)
			assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeInvalidWorkload), err.Error())
			assert.Equal(t, tc.field, errors.FieldOf(err), tc.reason)
		})
	}
}

func TestObject(t *testing.T) {
	owner := &metav1.OwnerReference{APIVersion: "example.org/v1", Kind: "WebApp", Name: "web", UID: "1234"}

	pod, err := (&Workload{
		ResourceKind: KindPod,
		Meta:         Meta{GenerateName: "web-", Namespace: "default", Owner: owner},
		Image:        "busybox",
		Command:      []string{"echo", "hi"},
	}).Object()
	require.NoError(t, err)
	p, ok := pod.(*corev1.Pod)
	require.True(t, ok)
	assert.Equal(t, "v1", p.APIVersion)
	assert.Equal(t, "Pod", p.Kind)
	assert.Equal(t, "web-", p.GenerateName)
	require.Len(t, p.OwnerReferences, 1)
	assert.Equal(t, "web", p.OwnerReferences[0].Name)
	assert.Equal(t, DefaultContainerName, p.Spec.Containers[0].Name)
	assert.Equal(t, []string{"echo", "hi"}, p.Spec.Containers[0].Command)

	deploy, err := (&Workload{
		ResourceKind: KindDeployment,
		Meta:         Meta{Name: "web", Labels: map[string]string{"team": "a"}},
		Image:        "nginx",
		Replicas:     ptr.To[int32](3),
	}).Object()
	require.NoError(t, err)
	d := deploy.(*appsv1.Deployment)
	assert.Equal(t, "apps/v1", d.APIVersion)
	assert.Equal(t, int32(3), *d.Spec.Replicas)
	assert.Equal(t, map[string]string{LabelWorkload: "web"}, d.Spec.Selector.MatchLabels)
	assert.Equal(t, map[string]string{LabelWorkload: "web", "team": "a"}, d.Spec.Template.Labels)

	job, err := (&Workload{ResourceKind: KindJob, Meta: Meta{Name: "once"}, Image: "busybox"}).Object()
	require.NoError(t, err)
	j := job.(*batchv1.Job)
	assert.Equal(t, "batch/v1", j.APIVersion)
	assert.Equal(t, corev1.RestartPolicyNever, j.Spec.Template.Spec.RestartPolicy)
}

func TestUnstructured(t *testing.T) {
	u, err := (&Workload{
		ResourceKind: KindDeployment,
		Meta:         Meta{Name: "web", Namespace: "apps"},
		Image:        "nginx",
		Replicas:     ptr.To[int32](2),
	}).Unstructured()
	require.NoError(t, err)

	assert.Equal(t, "Deployment", u.GetKind())
	assert.Equal(t, "apps/v1", u.GetAPIVersion())
	assert.Equal(t, "web", u.GetName())
	_, ok := u.Object["status"]
	assert.False(t, ok)

	replicas, found, err := unstructured.NestedInt64(u.Object, "spec", "replicas")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), replicas)

	_, err = (&Workload{ResourceKind: KindPod}).Unstructured()
	assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeInvalidWorkload))
}

func TestFromRecord(t *testing.T) {
	d, err := descriptor.Parse([]byte(`
image:
  kind: string
  default: nginx
command:
  kind: array
replicas:
  kind: integer
  default: 2
`))
	require.NoError(t, err)
	s, err := schema.Build(d)
	require.NoError(t, err)

	r, err := s.New(map[string]any{"command": []any{"nginx", "-g", "daemon off;"}})
	require.NoError(t, err)

	w, err := FromRecord(KindDeployment, Meta{Name: "web"}, r)
	require.NoError(t, err)
	assert.Equal(t, "nginx", w.Image)
	assert.Equal(t, []string{"nginx", "-g", "daemon off;"}, w.Command)
	require.NotNil(t, w.Replicas)
	assert.Equal(t, int32(2), *w.Replicas)

	// replicas is not a Pod capability
	_, err = FromRecord(KindPod, Meta{Name: "web"}, r)
	require.Error(t, err)
	assert.Equal(t, "replicas", errors.FieldOf(err))

	zero, err := s.New(map[string]any{"replicas": 0})
	require.NoError(t, err)
	w, err = FromRecord(KindPod, Meta{Name: "web"}, zero)
	require.NoError(t, err)
	assert.Nil(t, w.Replicas)
}
