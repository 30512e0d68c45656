package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/openfipe/fipe-harvester/internal/harvest"
	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/internal/resilience"
	"github.com/openfipe/fipe-harvester/internal/store"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// newClient builds a FIPE client from the loaded configuration.
func newClient() fipe.Client {
	retry := resilience.DefaultConfig()
	if cfg.API.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.API.MaxAttempts
	}
	if cfg.API.InitialBackoffMs > 0 {
		retry.InitialBackoff = cfg.API.InitialBackoff()
	}
	if cfg.API.MaxBackoffSecs > 0 {
		retry.MaxBackoff = cfg.API.MaxBackoff()
	}
	if cfg.API.BackoffMultiple > 0 {
		retry.Multiplier = cfg.API.BackoffMultiple
	}

	opts := []fipe.Option{
		fipe.WithRetry(retry),
		fipe.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout()}),
	}
	if cfg.API.RequestDelayMs > 0 {
		opts = append(opts, fipe.WithRequestDelay(cfg.API.RequestDelay()))
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, fipe.WithBaseURL(cfg.API.BaseURL))
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, fipe.WithUserAgent(cfg.API.UserAgent))
	}
	return fipe.NewClient(opts...)
}

// newClientFactory returns a factory producing independently paced clients.
func newClientFactory() harvest.ClientFactory {
	return func() fipe.Client {
		return newClient()
	}
}

// initLedger opens the configured run ledger backend, creating the parent
// directory for the sqlite file when needed.
func initLedger(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "fipe-runs.db"
		}
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, eris.Wrap(err, "create ledger directory")
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// validatePeriod checks a user-supplied MM/yyyy period flag. Empty means
// unbounded and is valid.
func validatePeriod(flag, value string) error {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return eris.Errorf("invalid --%s %q: expected MM/yyyy", flag, value)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return eris.Errorf("invalid --%s %q: month must be 1-12", flag, value)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 2000 || year > 2100 {
		return eris.Errorf("invalid --%s %q: year must be 2000-2100", flag, value)
	}
	return nil
}

// parseVehicleTypes converts a comma-separated type list. Empty means all.
func parseVehicleTypes(csv string) ([]model.VehicleType, error) {
	if strings.TrimSpace(csv) == "" {
		return model.AllVehicleTypes(), nil
	}

	var types []model.VehicleType
	for _, part := range strings.Split(csv, ",") {
		vt, err := model.ParseVehicleType(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		types = append(types, vt)
	}
	return types, nil
}

// ensureDir creates a directory path if missing.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
