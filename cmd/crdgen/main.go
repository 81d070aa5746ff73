// Command crdgen renders record descriptors as CustomResourceDefinitions and
// validates values against them, offline.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"sigs.k8s.io/yaml"

	"github.com/crossplane/function-crd-record/pkg/crd"
	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/envelope"
	"github.com/crossplane/function-crd-record/pkg/errors"
	"github.com/crossplane/function-crd-record/pkg/schema"
)

// CLI of crdgen.
type CLI struct {
	MaxDepth int `help:"Maximum descriptor nesting depth." default:"32"`

	CRD      crdCmd      `cmd:"" name:"crd" help:"Print the CRD generated from a descriptor."`
	Validate validateCmd `cmd:"" help:"Validate values against a descriptor and print the envelope."`
}

type crdCmd struct {
	Descriptor string `arg:"" type:"existingfile" help:"Descriptor document (YAML or JSON)."`

	Group      string   `required:"" help:"API group of the CRD."`
	Version    string   `required:"" help:"API version of the CRD."`
	Kind       string   `required:"" help:"Kind of the CRD."`
	Plural     string   `help:"Plural resource name. Defaults to the pluralized kind."`
	ShortNames []string `help:"Short names of the resource."`
	Categories []string `help:"Categories the resource belongs to."`
	Scope      string   `default:"Namespaced" enum:"Namespaced,Cluster" help:"Scope of the resource."`
}

func (c *crdCmd) Run(cli *CLI, out io.Writer) error {
	s, err := loadSchema(c.Descriptor, "", cli.MaxDepth)
	if err != nil {
		return err
	}

	generated, err := crd.Generate(s, crd.Options{
		Group:      c.Group,
		Version:    c.Version,
		Kind:       c.Kind,
		Plural:     c.Plural,
		ShortNames: c.ShortNames,
		Categories: c.Categories,
		Scope:      apiextv1.ResourceScope(c.Scope),
	})
	if err != nil {
		return err
	}
	return printYAML(out, generated)
}

type validateCmd struct {
	Descriptor string `arg:"" type:"existingfile" help:"Descriptor document, or a CRD whose spec schema is used."`
	Values     string `arg:"" type:"existingfile" help:"Values document (YAML or JSON)."`

	APIVersion string `default:"example.org/v1alpha1" help:"apiVersion of the envelope."`
	Kind       string `default:"Record" help:"Kind of the envelope."`
	Name       string `default:"record" help:"Name of the envelope."`
	Namespace  string `help:"Namespace of the envelope."`
	CRDVersion string `help:"CRD version to read the schema from. Defaults to the first version."`
}

func (c *validateCmd) Run(cli *CLI, out io.Writer) error {
	s, err := loadSchema(c.Descriptor, c.CRDVersion, cli.MaxDepth)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(c.Values)
	if err != nil {
		return errors.Wrap(err, "cannot read values")
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return errors.Wrap(err, "cannot parse values")
	}

	rec, err := s.New(values)
	if err != nil {
		if fe, ok := errors.As(err); ok {
			_ = printYAML(out, fe)
		}
		return err
	}

	e, err := envelope.New(c.APIVersion, c.Kind, envelope.Metadata{Name: c.Name, Namespace: c.Namespace}, rec)
	if err != nil {
		return err
	}
	return printYAML(out, e.Object())
}

// loadSchema reads a descriptor document or a CRD and builds its schema
func loadSchema(path, version string, maxDepth int) (*schema.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read descriptor")
	}

	d, err := parseDescriptor(raw, version)
	if err != nil {
		return nil, err
	}
	return schema.Build(d, schema.WithMaxDepth(maxDepth))
}

func parseDescriptor(raw []byte, version string) (*descriptor.Descriptor, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return nil, errors.DescriptorMalformedError("", "cannot parse descriptor document").WithCause(err)
	}

	kind, _ := probe["kind"].(string)
	apiVersion, _ := probe["apiVersion"].(string)
	if kind != "CustomResourceDefinition" || !strings.HasPrefix(apiVersion, apiextv1.GroupName+"/") {
		return descriptor.Parse(raw)
	}

	c := &apiextv1.CustomResourceDefinition{}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, errors.DescriptorMalformedError("", "cannot parse CRD").WithCause(err)
	}
	if version == "" {
		if len(c.Spec.Versions) == 0 {
			return nil, errors.DescriptorMalformedError("", "CRD declares no versions")
		}
		version = c.Spec.Versions[0].Name
	}
	spec, err := crd.SpecSchema(c, version)
	if err != nil {
		return nil, err
	}
	d, err := descriptor.FromOpenAPI(spec)
	if err != nil {
		return nil, err
	}
	d.Name = c.Spec.Names.Kind
	return d, nil
}

func printYAML(out io.Writer, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cannot encode output")
	}
	_, err = fmt.Fprint(out, string(b))
	return err
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("crdgen"),
		kong.Description("Render record descriptors as CRDs and validate values against them."),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
		kong.Bind(cli),
		kong.UsageOnError())
	ctx.FatalIfErrorf(ctx.Run())
}
