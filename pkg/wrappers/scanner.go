package wrappers

import (
	"context"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
)

// Scanner wraps one external scanning tool. Run produces the tool's raw
// JSON payload; Parse normalizes that payload into findings. Parse is pure
// and idempotent: the same bytes always yield the same ordered findings.
type Scanner interface {
	Name() string
	Category() engine.Category
	Run(ctx context.Context, target string) ([]byte, error)
	Parse(raw []byte) ([]engine.Finding, error)
}

// Enabled returns the wrappers for every category switched on in the
// config, in fixed category order. Adding a scanner means adding a new
// wrapper here, not touching dispatch logic.
func Enabled(cfg *config.Config) []Scanner {
	var out []Scanner
	if cfg.Enabled(engine.CategorySecrets) {
		out = append(out, &GitleaksScanner{})
	}
	if cfg.Enabled(engine.CategoryIaC) {
		out = append(out, &TrivyConfigScanner{})
	}
	if cfg.Enabled(engine.CategoryContainer) {
		out = append(out, &TrivyImageScanner{Image: cfg.Scans["container"].Image})
	}
	return out
}
