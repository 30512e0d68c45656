// Package fipe provides a client for the FIPE vehicle pricing API. Every
// call is paced by a per-instance rate limiter and retried with exponential
// backoff on transient failures.
package fipe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openfipe/fipe-harvester/internal/resilience"
)

const (
	defaultBaseURL      = "https://veiculos.fipe.org.br/api/veiculos/"
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultReferer      = "https://veiculos.fipe.org.br/"
	defaultOrigin       = "https://veiculos.fipe.org.br"
	defaultRequestDelay = 500 * time.Millisecond
	defaultTimeout      = 30 * time.Second
)

// Endpoint names of the five POST lookup operations.
const (
	endpointReferenceTables = "ConsultarTabelaDeReferencia"
	endpointBrands          = "ConsultarMarcas"
	endpointModels          = "ConsultarModelos"
	endpointYearModels      = "ConsultarAnoModelo"
	endpointValue           = "ConsultarValorComTodosParametros"
)

// Client defines the FIPE lookup operations.
type Client interface {
	// ReferenceTables lists every available reference period.
	ReferenceTables(ctx context.Context) ([]ReferenceTable, error)
	// Brands lists brands for one period and vehicle type.
	Brands(ctx context.Context, tableCode, vehicleType int) ([]LabelValue, error)
	// Models lists models of a brand in one period.
	Models(ctx context.Context, tableCode, vehicleType, brandCode int) (*ModelsResponse, error)
	// YearModels lists the model-year variants of a model.
	YearModels(ctx context.Context, tableCode, vehicleType, brandCode, modelCode int) ([]LabelValue, error)
	// Value looks up the priced entry for one model-year variant.
	Value(ctx context.Context, q ValueQuery) (*ValueResponse, error)
}

// ReferenceTable is one entry of the reference period listing.
type ReferenceTable struct {
	Code  int    `json:"Codigo"`
	Month string `json:"Mes"`
}

// LabelValue is the generic {Label, Value} pair the API uses for brand,
// model, and year-model listings.
type LabelValue struct {
	Label string `json:"Label"`
	Value string `json:"Value"`
}

// ModelsResponse is the response of the model listing.
type ModelsResponse struct {
	Models []LabelValue `json:"Modelos"`
	Years  []LabelValue `json:"Anos"`
}

// ValueQuery identifies one priced entry. YearCode carries the raw
// "<year>-<fuel>" value from the year-model listing; the fuel suffix takes
// precedence over FuelCode.
type ValueQuery struct {
	TableCode   int
	VehicleType int
	BrandCode   int
	ModelCode   int
	YearCode    string
	FuelCode    int
}

// ValueResponse is the full priced entry returned by the value lookup.
type ValueResponse struct {
	Price          string `json:"Valor"`
	Brand          string `json:"Marca"`
	Model          string `json:"Modelo"`
	ModelYear      int    `json:"AnoModelo"`
	Fuel           string `json:"Combustivel"`
	FipeCode       string `json:"CodigoFipe"`
	ReferenceMonth string `json:"MesReferencia"`
	Authentication string `json:"Autenticacao"`
	QueryDate      string `json:"DataConsulta"`
}

// APIError is a non-retryable request failure: an unexpected status, an
// unparseable body, or an API error message that does not indicate
// temporary blocking. The message is surfaced verbatim.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return "fipe: " + e.Endpoint + ": status " + strconv.Itoa(e.StatusCode) + ": " + e.Message
	}
	return "fipe: " + e.Endpoint + ": " + e.Message
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRequestDelay sets the minimum interval between consecutive calls on
// this client instance. Pacing is local to the instance; there is no
// cross-instance coordination.
func WithRequestDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg resilience.Config) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithReferer overrides the default Referer header.
func WithReferer(referer string) Option {
	return func(c *httpClient) {
		c.referer = referer
	}
}

// WithOrigin overrides the default Origin header.
func WithOrigin(origin string) Option {
	return func(c *httpClient) {
		c.origin = origin
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	referer   string
	origin    string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.Config
}

// NewClient creates a FIPE API client with its own pacing clock and HTTP
// session.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		referer:   defaultReferer,
		origin:    defaultOrigin,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(defaultRequestDelay), 1),
		retry:   resilience.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ReferenceTables(ctx context.Context) ([]ReferenceTable, error) {
	var out []ReferenceTable
	if err := c.post(ctx, endpointReferenceTables, struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type brandsRequest struct {
	TableCode   int `json:"codigoTabelaReferencia"`
	VehicleType int `json:"codigoTipoVeiculo"`
}

func (c *httpClient) Brands(ctx context.Context, tableCode, vehicleType int) ([]LabelValue, error) {
	var out []LabelValue
	err := c.post(ctx, endpointBrands, brandsRequest{
		TableCode:   tableCode,
		VehicleType: vehicleType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type modelsRequest struct {
	TableCode   int `json:"codigoTabelaReferencia"`
	VehicleType int `json:"codigoTipoVeiculo"`
	BrandCode   int `json:"codigoMarca"`
}

func (c *httpClient) Models(ctx context.Context, tableCode, vehicleType, brandCode int) (*ModelsResponse, error) {
	var out ModelsResponse
	err := c.post(ctx, endpointModels, modelsRequest{
		TableCode:   tableCode,
		VehicleType: vehicleType,
		BrandCode:   brandCode,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type yearModelsRequest struct {
	TableCode   int `json:"codigoTabelaReferencia"`
	VehicleType int `json:"codigoTipoVeiculo"`
	BrandCode   int `json:"codigoMarca"`
	ModelCode   int `json:"codigoModelo"`
}

func (c *httpClient) YearModels(ctx context.Context, tableCode, vehicleType, brandCode, modelCode int) ([]LabelValue, error) {
	var out []LabelValue
	err := c.post(ctx, endpointYearModels, yearModelsRequest{
		TableCode:   tableCode,
		VehicleType: vehicleType,
		BrandCode:   brandCode,
		ModelCode:   modelCode,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type valueRequest struct {
	TableCode   int    `json:"codigoTabelaReferencia"`
	VehicleType int    `json:"codigoTipoVeiculo"`
	BrandCode   int    `json:"codigoMarca"`
	ModelCode   int    `json:"codigoModelo"`
	ModelYear   string `json:"anoModelo"`
	FuelCode    int    `json:"codigoTipoCombustivel"`
	QueryMode   string `json:"tipoConsulta"`
}

func (c *httpClient) Value(ctx context.Context, q ValueQuery) (*ValueResponse, error) {
	modelYear, fuelCode := splitYearCode(q.YearCode, q.FuelCode)

	var out ValueResponse
	err := c.post(ctx, endpointValue, valueRequest{
		TableCode:   q.TableCode,
		VehicleType: q.VehicleType,
		BrandCode:   q.BrandCode,
		ModelCode:   q.ModelCode,
		ModelYear:   modelYear,
		FuelCode:    fuelCode,
		QueryMode:   "tradicional",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// splitYearCode splits "<year>-<fuel>" into its parts. A missing or
// malformed fuel suffix falls back to the supplied default, or 1.
func splitYearCode(yearCode string, defaultFuel int) (string, int) {
	if defaultFuel == 0 {
		defaultFuel = 1
	}
	year, fuelPart, found := strings.Cut(yearCode, "-")
	if !found {
		return yearCode, defaultFuel
	}
	fuel, err := strconv.Atoi(fuelPart)
	if err != nil {
		return year, defaultFuel
	}
	return year, fuel
}

// post performs one logical call: marshal, dispatch with pacing and retry,
// unmarshal the classified-successful body into out.
func (c *httpClient) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "fipe: marshal %s request", endpoint)
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger(endpoint)

	respBody, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.dispatch(ctx, endpoint, body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Endpoint: endpoint, Message: "unexpected response shape: " + truncate(string(respBody), 200)}
	}
	return nil
}

// dispatch issues a single paced POST and classifies the outcome. It
// returns the raw body only when the call is a success per the
// classification rules; every other outcome is an error, transient or not.
func (c *httpClient) dispatch(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fipe: pacing wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrapf(err, "fipe: create %s request", endpoint)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.referer)
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failures and timeouts classify as transient via the
		// retry layer's default check.
		return nil, eris.Wrapf(err, "fipe: send %s request", endpoint)
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, eris.Wrapf(readErr, "fipe: read %s response", endpoint)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		zap.L().Warn("rate limit hit",
			zap.String("endpoint", endpoint),
		)
		return nil, resilience.NewTransientError(eris.Errorf("fipe: %s: rate limited", endpoint), resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, resilience.NewTransientError(eris.Errorf("fipe: %s: server error %d", endpoint, resp.StatusCode), resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	if !json.Valid(body) {
		return nil, &APIError{Endpoint: endpoint, Message: "invalid JSON response: " + truncate(string(body), 200)}
	}

	if msg, ok := embeddedError(body); ok {
		if isBlockingMessage(msg) {
			zap.L().Warn("api reported temporary blocking",
				zap.String("endpoint", endpoint),
				zap.String("message", msg),
			)
			return nil, resilience.NewTransientError(eris.Errorf("fipe: %s: %s", endpoint, msg), resp.StatusCode)
		}
		return nil, &APIError{Endpoint: endpoint, Message: msg}
	}

	return body, nil
}

// embeddedError reports the "erro" field of an object response, if present.
func embeddedError(body []byte) (string, bool) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	raw, ok := obj["erro"]
	if !ok {
		return "", false
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		msg = string(raw)
	}
	if msg == "" {
		msg = "unknown error"
	}
	return msg, true
}

// isBlockingMessage reports whether an API error message indicates
// temporary blocking and is therefore safe to retry.
func isBlockingMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "blocked")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
