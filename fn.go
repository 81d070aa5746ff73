package main

import (
	"context"
	"fmt"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/fieldpath"
	"github.com/crossplane/function-sdk-go/logging"
	fnv1 "github.com/crossplane/function-sdk-go/proto/v1"
	"github.com/crossplane/function-sdk-go/request"
	"github.com/crossplane/function-sdk-go/resource"
	"github.com/crossplane/function-sdk-go/resource/composed"
	"github.com/crossplane/function-sdk-go/response"
	"github.com/google/uuid"

	"github.com/crossplane/function-crd-record/input/v1beta1"
	"github.com/crossplane/function-crd-record/internal/cache"
	"github.com/crossplane/function-crd-record/internal/config"
	"github.com/crossplane/function-crd-record/internal/service"
	"github.com/crossplane/function-crd-record/pkg/errors"
	responsebuilder "github.com/crossplane/function-crd-record/pkg/response"
	"github.com/crossplane/function-crd-record/pkg/tokens"
)

// Function renders validated records as composed resources
type Function struct {
	fnv1.UnimplementedFunctionRunnerServiceServer
	log    logging.Logger
	config *config.Config

	// Core components
	schemas         *cache.MemoryCache
	responseBuilder responsebuilder.Builder
}

// NewFunction creates a new function instance
func NewFunction(log logging.Logger, cfg *config.Config) *Function {
	if cfg == nil {
		cfg = config.New()
	}
	return &Function{
		log:             log,
		config:          cfg,
		schemas:         cache.NewMemoryCache(cfg.SchemaCacheTTL),
		responseBuilder: responsebuilder.NewDefaultBuilder(),
	}
}

// RunFunction validates the composite resource's values against every
// resource template and emits the results as desired composed resources.
func (f *Function) RunFunction(ctx context.Context, req *fnv1.RunFunctionRequest) (*fnv1.RunFunctionResponse, error) {
	startTime := time.Now()
	correlationID := uuid.NewString()
	log := f.log.WithValues("correlationId", correlationID, "tag", req.GetMeta().GetTag())

	rsp := response.To(req, response.DefaultTTL)

	in := &v1beta1.Input{}
	if err := request.GetInput(req, in); err != nil {
		response.Fatal(rsp, errors.Wrap(err, "cannot get function input"))
		return rsp, nil
	}

	xr, err := request.GetObservedCompositeResource(req)
	if err != nil {
		response.Fatal(rsp, errors.Wrap(err, "cannot get observed composite"))
		return rsp, nil
	}

	log.Info("Processing XR",
		"kind", xr.Resource.GetKind(),
		"name", xr.Resource.GetName(),
		"resources", len(in.Resources))

	desired, err := request.GetDesiredComposedResources(req)
	if err != nil {
		response.Fatal(rsp, errors.Wrap(err, "cannot get desired composed resources"))
		return rsp, nil
	}

	limit := f.config.MaxConcurrentRenders
	if in.MaxConcurrentRenders != nil && *in.MaxConcurrentRenders > 0 {
		limit = *in.MaxConcurrentRenders
	}

	renderer := service.NewRendererService(log, f.schemas, f.config.DescriptorMaxDepth, f.config.DefaultFieldPath)
	rendered, err := renderer.RenderAll(ctx, &xr.Resource.Unstructured, in.Resources, limit)
	if err != nil {
		log.Info("Rendering failed", "code", errors.GetErrorCode(err), "field", errors.FieldOf(err), "error", err)
		response.Fatal(rsp, err)
		return rsp, nil
	}

	summary := &responsebuilder.Summary{CorrelationID: correlationID}
	hits := 0
	for _, r := range rendered {
		desired[resource.Name(r.Name)] = &resource.DesiredComposed{Resource: &composed.Unstructured{Unstructured: *r.Object}}
		summary.Records = append(summary.Records, responsebuilder.RenderedRecord{
			Name:         r.Name,
			ResourceKind: string(r.ResourceKind),
			Object:       r.Object.Object,
		})
		if r.CacheHit {
			hits++
		}
	}

	if in.Spawn != nil {
		if err := f.spawn(ctx, log, xr.Resource.Object, tokens.OwnerOf(&xr.Resource.Unstructured), in.Spawn, desired, summary); err != nil {
			response.Fatal(rsp, err)
			return rsp, nil
		}
	}

	if err := response.SetDesiredComposedResources(rsp, desired); err != nil {
		response.Fatal(rsp, errors.Wrap(err, "cannot set desired composed resources"))
		return rsp, nil
	}

	if err := f.responseBuilder.SetContext(rsp, summary); err != nil {
		response.Fatal(rsp, errors.Wrap(err, "failed to build response context"))
		return rsp, nil
	}

	if summary.SpawnFailed > 0 {
		response.ConditionFalse(rsp, "RecordsRendered", "SomeSpawnsFailed").
			WithMessage(fmt.Sprintf("Rendered %d records, %d of %d spawns failed",
				len(summary.Records), summary.SpawnFailed, summary.Spawned+summary.SpawnFailed)).
			TargetCompositeAndClaim()
		for _, spawnErr := range summary.SpawnErrors {
			response.Warning(rsp, spawnErr)
		}
	} else {
		response.ConditionTrue(rsp, "RecordsRendered", "AllRecordsRendered").
			WithMessage(fmt.Sprintf("Rendered %d records and spawned %d pods", len(summary.Records), summary.Spawned)).
			TargetCompositeAndClaim()
		response.Normal(rsp, fmt.Sprintf("Successfully rendered %d records", len(summary.Records)))
	}

	log.Info("Function execution completed",
		"executionTime", time.Since(startTime),
		"records", len(summary.Records),
		"schemaCacheHits", hits,
		"tokensVisited", summary.TokensVisited,
		"spawned", summary.Spawned)

	return rsp, nil
}

// spawn walks the XR's tokens and adds one desired pod per SPAWN token.
func (f *Function) spawn(ctx context.Context, log logging.Logger, xr map[string]interface{}, owner tokens.Owner, cfg *v1beta1.SpawnConfig, desired map[resource.Name]*resource.DesiredComposed, summary *responsebuilder.Summary) error {
	path := f.config.TokensFieldPath
	if cfg.TokensFieldPath != nil && *cfg.TokensFieldPath != "" {
		path = *cfg.TokensFieldPath
	}

	value, err := fieldpath.Pave(xr).GetValue(path)
	if fieldpath.IsNotFound(err) {
		log.Debug("No tokens found", "tokensFieldPath", path)
		return nil
	}
	if err != nil {
		return errors.ValidationError("invalid tokensFieldPath").WithField(path).WithCause(err)
	}

	tmpl := f.config.SpawnTemplate()
	if cfg.Image != nil {
		tmpl.Image = *cfg.Image
	}
	if cfg.Namespace != nil {
		tmpl.Namespace = *cfg.Namespace
	}
	if len(cfg.Command) > 0 {
		tmpl.Command = cfg.Command
	}

	sink := &tokens.Collector{}
	res := tokens.NewSpawner(log, sink, tokens.WithTemplate(tmpl)).Handle(ctx, owner, value)

	summary.TokensVisited = res.Visited
	summary.SpawnFailed = res.Failed
	summary.SpawnErrors = res.Errors

	for i, w := range sink.Workloads() {
		u, err := w.Unstructured()
		if err != nil {
			return errors.Wrapf(err, "cannot render spawned pod %d", i)
		}
		name := fmt.Sprintf("spawn-%d", i)
		desired[resource.Name(name)] = &resource.DesiredComposed{Resource: &composed.Unstructured{Unstructured: *u}}
		summary.Records = append(summary.Records, responsebuilder.RenderedRecord{
			Name:         name,
			ResourceKind: string(v1beta1.ResourceKindPod),
			Object:       u.Object,
		})
		summary.Spawned++
	}
	return nil
}
