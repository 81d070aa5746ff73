// Package v1beta1 contains the input type for the CRD Record Function
// +kubebuilder:object:generate=true
// +groupName=crdrecord.fn.crossplane.io
// +versionName=v1beta1
package v1beta1

import (
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Input declares the records the function renders from the composite resource
// +kubebuilder:object:root=true
// +kubebuilder:storageversion
// +kubebuilder:resource:categories=crossplane
type Input struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// Resources lists the records to validate and emit as composed resources
	Resources []ResourceTemplate `json:"resources,omitempty"`

	// Spawn enables the SPAWN token walk over the composite resource
	// +optional
	Spawn *SpawnConfig `json:"spawn,omitempty"`

	// MaxConcurrentRenders limits how many resources are rendered at once
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=50
	// +optional
	MaxConcurrentRenders *int `json:"maxConcurrentRenders,omitempty"`
}

// ResourceKind tags what a rendered record becomes
// +kubebuilder:validation:Enum=Custom;Pod;Deployment;Job
type ResourceKind string

const (
	ResourceKindCustom     ResourceKind = "Custom"
	ResourceKindPod        ResourceKind = "Pod"
	ResourceKindDeployment ResourceKind = "Deployment"
	ResourceKindJob        ResourceKind = "Job"
)

// ResourceTemplate describes one record and the envelope it is wrapped in
type ResourceTemplate struct {
	// Name is the composed resource name in the desired state
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:Pattern="^[a-z0-9]([-a-z0-9]*[a-z0-9])?$"
	Name string `json:"name"`

	// APIVersion of the emitted resource, e.g. "example.org/v1alpha1"
	// Ignored for workload resource kinds.
	// +optional
	APIVersion string `json:"apiVersion,omitempty"`

	// Kind of the emitted resource
	// Ignored for workload resource kinds.
	// +optional
	Kind string `json:"kind,omitempty"`

	// ResourceKind selects a custom envelope or a built-in workload
	// +kubebuilder:default="Custom"
	// +optional
	ResourceKind ResourceKind `json:"resourceKind,omitempty"`

	// FromFieldPath is the composite resource path holding the field values
	// +optional
	FromFieldPath *string `json:"fromFieldPath,omitempty"`

	// Metadata overrides the identity of the emitted resource
	// +optional
	Metadata *ObjectIdentity `json:"metadata,omitempty"`

	// Fields is the ordered schema descriptor
	// +kubebuilder:validation:MinItems=1
	Fields []FieldSpec `json:"fields"`
}

// ObjectIdentity is the name/namespace pair of an emitted resource
type ObjectIdentity struct {
	// +optional
	Name string `json:"name,omitempty"`

	// +optional
	Namespace *string `json:"namespace,omitempty"`
}

// FieldSpec declares one descriptor field
type FieldSpec struct {
	// Name of the field, unique within its descriptor
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// Kind is the primitive kind of the field
	// +kubebuilder:validation:Enum=string;integer;array;object
	Kind string `json:"kind"`

	// Default value, must match Kind
	// +kubebuilder:pruning:PreserveUnknownFields
	// +optional
	Default *apiextv1.JSON `json:"default,omitempty"`

	// Description is carried into generated CRDs
	// +optional
	Description string `json:"description,omitempty"`

	// Required fields without a default must be present
	// +optional
	Required bool `json:"required,omitempty"`

	// Items declares the element kind of an array field
	// +kubebuilder:pruning:PreserveUnknownFields
	// +kubebuilder:validation:Schemaless
	// +optional
	Items *FieldSpec `json:"items,omitempty"`

	// Properties declares the nested descriptor of an object field
	// +kubebuilder:pruning:PreserveUnknownFields
	// +kubebuilder:validation:Schemaless
	// +optional
	Properties []FieldSpec `json:"properties,omitempty"`
}

// SpawnConfig configures the SPAWN token walk
type SpawnConfig struct {
	// TokensFieldPath is the composite resource path holding the token list
	// +kubebuilder:default="spec.tokens"
	// +optional
	TokensFieldPath *string `json:"tokensFieldPath,omitempty"`

	// Namespace for spawned pods
	// +optional
	Namespace *string `json:"namespace,omitempty"`

	// Image for spawned pods
	// +optional
	Image *string `json:"image,omitempty"`

	// Command for spawned pods
	// +optional
	Command []string `json:"command,omitempty"`
}
