package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	ex "mc.backtest/extensions"
	"mc.backtest/ingest"
	"mc.backtest/models"
)

const (
	DefaultAddr = ":8080"

	maxUploadBytes = 32 << 20
)

var validate = validator.New()

func GetHttpServer(sc ServiceContext, addr string) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}

	return &http.Server{
		Addr:           addr,
		Handler:        GetRouter(sc),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   2 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
}

func GetRouter(sc ServiceContext) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	router.Get("/api/ping", ping)
	router.Post("/api/backtest", func(w http.ResponseWriter, r *http.Request) { backtest(w, r, sc) })

	return router
}

func ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// backtest expects a multipart form with portfolio and benchmark files, an optional
// riskfree file, and optional maturity, riskFreeRate, simulations and seed fields.
func backtest(w http.ResponseWriter, r *http.Request, sc ServiceContext) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrorKindValidation, fmt.Errorf("error parsing multipart form: %w", err))
		return
	}

	req, err := buildBacktestRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, models.ErrorKindValidation, err)
		return
	}

	rsc := ServiceContext{
		Context: r.Context(),
		Logger:  sc.Logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger(),
	}

	report, err := rsc.RunBacktest(req)
	if err != nil {
		writeBacktestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GetServiceResponseOk(report))
}

// writeBacktestError maps run failures to statuses: bad input data is 422, failing to read an upload is 500
func writeBacktestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrMalformedRecord):
		writeError(w, http.StatusUnprocessableEntity, models.ErrorKindMalformedRecord, err)
	case errors.Is(err, ErrEmptyRiskFree):
		writeError(w, http.StatusUnprocessableEntity, models.ErrorKindValidation, err)
	case errors.Is(err, ingest.ErrIO):
		writeError(w, http.StatusInternalServerError, models.ErrorKindIO, err)
	default:
		writeError(w, http.StatusInternalServerError, models.ErrorKindInternal, err)
	}
}

func buildBacktestRequest(r *http.Request) (BacktestRequest, error) {
	var req BacktestRequest

	files := r.MultipartForm.File
	for _, field := range []string{"portfolio", "benchmark"} {
		if len(files[field]) == 0 {
			return req, fmt.Errorf("missing %s file", field)
		}
	}
	req.Portfolio = UploadSource{Header: files["portfolio"][0]}
	req.Benchmark = UploadSource{Header: files["benchmark"][0]}
	if len(files["riskfree"]) > 0 {
		req.RiskFree = UploadSource{Header: files["riskfree"][0]}
	}

	settings := models.BacktestSettings{
		Maturity:     models.DefaultMaturity,
		RiskFreeRate: models.DefaultRiskFreeRate,
		Simulations:  models.DefaultSimulations,
	}
	if v := r.FormValue("maturity"); v != "" {
		settings.Maturity = v
	}

	var err error
	if v := r.FormValue("riskFreeRate"); v != "" {
		if settings.RiskFreeRate, err = strconv.ParseFloat(v, 64); err != nil || !ex.IsFinite(settings.RiskFreeRate) {
			return req, fmt.Errorf("riskFreeRate %q is not a number", v)
		}
	}
	if v := r.FormValue("simulations"); v != "" {
		if settings.Simulations, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("simulations %q is not an integer", v)
		}
	}
	if v := r.FormValue("seed"); v != "" {
		if settings.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return req, fmt.Errorf("seed %q is not an unsigned integer", v)
		}
	}

	if err := validate.Struct(settings); err != nil {
		return req, fmt.Errorf("invalid backtest settings: %w", err)
	}

	req.Settings = settings
	return req, nil
}

// writeJSON encodes before writing the status, so an unencodable payload still gets a 500 with a body
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		res := models.GetServiceResponseError(models.ErrorKindInternal, fmt.Sprintf("error encoding response: %v", err))
		_ = json.NewEncoder(&buf).Encode(res)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, models.GetServiceResponseError(kind, err.Error()))
}
