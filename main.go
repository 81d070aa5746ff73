// Package main implements a Composition Function that validates composite
// resource values against declared record schemas and emits them as composed
// resources.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/crossplane/function-sdk-go"

	"github.com/crossplane/function-crd-record/internal/config"
)

// CLI of this Function.
type CLI struct {
	Debug bool `short:"d" help:"Emit debug logs in addition to info logs."`

	Network     string `help:"Network on which to listen for gRPC connections." default:"tcp"`
	Address     string `help:"Address at which to listen for gRPC connections." default:":9443"`
	TLSCertsDir string `help:"Directory containing server certs (tls.key, tls.crt) and the CA used to verify client certificates (ca.crt)" env:"TLS_SERVER_CERTS_DIR"`
	Insecure    bool   `help:"Run without mTLS credentials. If you supply this flag --tls-server-certs-dir will be ignored."`
}

// Run this Function.
func (c *CLI) Run() error {
	cfg := config.New()

	log, err := function.NewLogger(c.Debug || cfg.Debug())
	if err != nil {
		return err
	}

	fn := NewFunction(log, cfg)
	if cfg.SchemaCacheTTL > 0 {
		stop := make(chan struct{})
		defer close(stop)
		fn.schemas.StartCleanupRoutine(cfg.SchemaCacheTTL, stop)
	}

	log.Info("Starting function", "network", c.Network, "address", c.Address,
		"maxConcurrentRenders", cfg.MaxConcurrentRenders, "schemaCacheTTL", cfg.SchemaCacheTTL)

	return function.Serve(fn,
		function.Listen(c.Network, c.Address),
		function.MTLSCertificates(c.TLSCertsDir),
		function.Insecure(c.Insecure))
}

func main() {
	ctx := kong.Parse(&CLI{}, kong.Description("A Crossplane Composition Function that renders schema-validated records."))
	ctx.FatalIfErrorf(ctx.Run())
}
