package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/ingestion"
	"github.com/delvtech/hyperdrive-sub006/internal/observability"
	"github.com/delvtech/hyperdrive-sub006/internal/persistence"
	"github.com/delvtech/hyperdrive-sub006/internal/projection"
	"github.com/delvtech/hyperdrive-sub006/internal/query"
)

// GRPCServer wraps the gRPC server and the gateway HTTP mux.
type GRPCServer struct {
	grpcServer    *grpc.Server
	httpServer    *http.Server
	grpcAddr      string
	httpAddr      string
	deps          *ServerDeps
	healthChecker *observability.HealthChecker
}

// ServerDeps holds all dependencies needed by the API surface.
type ServerDeps struct {
	DB            *sql.DB
	QueryService  *query.QueryService
	IngestService *ingestion.GRPCIngestService
	SnapshotMgr   *persistence.SnapshotManager
	Metrics       *observability.Metrics
	StartTime     time.Time
	HealthChecker *observability.HealthChecker
}

// NewGRPCServer creates a new gRPC server. The gRPC side carries health and
// reflection; the query and admin surface is HTTP/JSON on the gateway mux.
func NewGRPCServer(grpcAddr, httpAddr string, deps *ServerDeps) *GRPCServer {
	grpcServer := grpc.NewServer()

	// Health check
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl / grpcui
	reflection.Register(grpcServer)

	return &GRPCServer{
		grpcServer:    grpcServer,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		deps:          deps,
		healthChecker: deps.HealthChecker,
	}
}

// StartGRPC starts the gRPC server (blocking).
func (s *GRPCServer) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: gRPC server shutting down...")
		s.grpcServer.GracefulStop()
	}()

	log.Printf("INFO: gRPC server listening on %s", s.grpcAddr)
	return s.grpcServer.Serve(lis)
}

// StartHTTPGateway starts the HTTP/JSON API (blocking). Routes are served on
// a gateway mux so path parameters and error shapes follow gRPC-Gateway
// conventions, for tooling, dashboards, curl.
func (s *GRPCServer) StartHTTPGateway(ctx context.Context) error {
	mux := runtime.NewServeMux()

	if err := s.registerQueryRoutes(mux); err != nil {
		return fmt.Errorf("register query routes: %w", err)
	}
	if err := s.registerAdminRoutes(mux); err != nil {
		return fmt.Errorf("register admin routes: %w", err)
	}

	httpMux := http.NewServeMux()
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	} else {
		httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"ok"}`)
		})
	}
	httpMux.Handle("/", mux)

	s.httpServer = &http.Server{
		Addr:    s.httpAddr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP gateway shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP API listening on %s", s.httpAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ============================================================================
// Query routes
// ============================================================================

type routeHandler func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error)

type route struct {
	method   string
	pattern  string
	endpoint string
	handler  routeHandler
}

func (s *GRPCServer) registerQueryRoutes(mux *runtime.ServeMux) error {
	qs := s.deps.QueryService

	routes := []route{
		{
			"GET", "/v1/pools/{pool_id}", "pool_info",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				return qs.GetPoolInfo(ctx, params["pool_id"])
			},
		},
		{
			"GET", "/v1/pools/{pool_id}/rates", "rates",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				return qs.GetRates(ctx, params["pool_id"])
			},
		},
		{
			"GET", "/v1/pools/{pool_id}/positions", "positions",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				holder := r.URL.Query().Get("holder")
				balances, err := qs.GetPositionBalances(ctx, params["pool_id"], holder)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"positions": balances}, nil
			},
		},
		{
			"GET", "/v1/pools/{pool_id}/checkpoints/{checkpoint_time}", "checkpoint",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				t, err := strconv.ParseUint(params["checkpoint_time"], 10, 64)
				if err != nil {
					return nil, badRequestf("invalid checkpoint_time: %v", err)
				}
				return qs.GetCheckpoint(ctx, params["pool_id"], t)
			},
		},
		{
			"GET", "/v1/pools/{pool_id}/balances", "pool_balances",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				balances, err := qs.GetPoolBalances(ctx, params["pool_id"])
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"balances": balances}, nil
			},
		},
		{
			"GET", "/v1/pools/{pool_id}/rate-history", "rate_history",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				limit := queryLimit(r, 100, 1000)
				history, err := qs.GetRateHistory(ctx, params["pool_id"], limit)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"history": history}, nil
			},
		},
		{
			"GET", "/v1/traders/{trader}/balance", "trader_balance",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				return qs.GetTraderBalance(ctx, params["trader"])
			},
		},
		{
			"GET", "/v1/traders/{trader}/journal", "journal",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				limit := queryLimit(r, 100, 500)
				var afterSeq *int64
				if v := r.URL.Query().Get("after_sequence"); v != "" {
					seq, err := strconv.ParseInt(v, 10, 64)
					if err != nil {
						return nil, badRequestf("invalid after_sequence: %v", err)
					}
					afterSeq = &seq
				}
				entries, err := qs.GetJournalHistory(ctx, params["trader"], limit, afterSeq)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"journals": entries}, nil
			},
		},
	}

	return s.registerRoutes(mux, routes)
}

// ============================================================================
// Admin routes
// ============================================================================

// Admin bodies mirror the NATS admin payloads; fee and price amounts are
// quoted raw 1e18-scaled decimal strings like everywhere else on the wire.
type pauseRequest struct {
	Actor      string `json:"actor"`
	Pool       string `json:"pool"`
	Paused     bool   `json:"paused"`
	OpSequence int64  `json:"op_sequence"`
}

type feeUpdateRequest struct {
	Actor         string        `json:"actor"`
	Pool          string        `json:"pool"`
	CurveFee      fp.FixedPoint `json:"curve_fee"`
	FlatFee       fp.FixedPoint `json:"flat_fee"`
	GovernanceFee fp.FixedPoint `json:"governance_fee"`
	OpSequence    int64         `json:"op_sequence"`
}

type collectFeeRequest struct {
	Actor      string `json:"actor"`
	Pool       string `json:"pool"`
	OpSequence int64  `json:"op_sequence"`
}

type sweepRequest struct {
	Actor      string `json:"actor"`
	Pool       string `json:"pool"`
	Token      string `json:"token"`
	OpSequence int64  `json:"op_sequence"`
}

type checkpointRequest struct {
	Pool           string `json:"pool"`
	CheckpointTime uint64 `json:"checkpoint_time"`
	OpSequence     int64  `json:"op_sequence"`
}

type sharePriceRequest struct {
	Pool          string        `json:"pool"`
	SharePrice    fp.FixedPoint `json:"share_price"`
	PriceSequence int64         `json:"price_sequence"`
}

func (s *GRPCServer) registerAdminRoutes(mux *runtime.ServeMux) error {
	ingest := s.deps.IngestService
	qs := s.deps.QueryService

	routes := []route{
		{
			"GET", "/v1/admin/integrity", "integrity",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				return qs.VerifyIntegrity(ctx)
			},
		},
		{
			"GET", "/v1/admin/event-log", "event_log_info",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				seq, err := s.deps.SnapshotMgr.GetLatestSequence(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"last_sequence": seq}, nil
			},
		},
		{
			"POST", "/v1/admin/rebuild-projections", "rebuild_projections",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				if err := projection.RebuildProjections(ctx, s.deps.DB); err != nil {
					return nil, err
				}
				return map[string]interface{}{"rebuilt": true}, nil
			},
		},
		{
			"POST", "/v1/admin/pause", "admin_pause",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				var req pauseRequest
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
				if req.Actor == "" || req.Pool == "" {
					return nil, badRequestf("actor and pool are required")
				}
				if err := ingest.InjectPauseToggle(ctx, req.Actor, req.Pool, req.Paused, req.OpSequence); err != nil {
					return nil, err
				}
				return map[string]interface{}{"accepted": true}, nil
			},
		},
		{
			"POST", "/v1/admin/fees", "admin_fees",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				var req feeUpdateRequest
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
				if req.Actor == "" || req.Pool == "" {
					return nil, badRequestf("actor and pool are required")
				}
				err := ingest.InjectFeeUpdate(ctx, req.Actor, req.Pool,
					req.CurveFee, req.FlatFee, req.GovernanceFee, req.OpSequence)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"accepted": true}, nil
			},
		},
		{
			"POST", "/v1/admin/collect", "admin_collect",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				var req collectFeeRequest
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
				if req.Actor == "" || req.Pool == "" {
					return nil, badRequestf("actor and pool are required")
				}
				if err := ingest.InjectCollectGovernanceFee(ctx, req.Actor, req.Pool, req.OpSequence); err != nil {
					return nil, err
				}
				return map[string]interface{}{"accepted": true}, nil
			},
		},
		{
			"POST", "/v1/admin/sweep", "admin_sweep",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				var req sweepRequest
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
				if req.Actor == "" || req.Pool == "" || req.Token == "" {
					return nil, badRequestf("actor, pool, and token are required")
				}
				if err := ingest.InjectSweep(ctx, req.Actor, req.Pool, req.Token, req.OpSequence); err != nil {
					return nil, err
				}
				return map[string]interface{}{"accepted": true}, nil
			},
		},
		{
			"POST", "/v1/admin/checkpoint", "admin_checkpoint",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				var req checkpointRequest
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
				if req.Pool == "" {
					return nil, badRequestf("pool is required")
				}
				if err := ingest.InjectCheckpoint(ctx, req.Pool, req.CheckpointTime, req.OpSequence); err != nil {
					return nil, err
				}
				return map[string]interface{}{"accepted": true}, nil
			},
		},
		{
			"POST", "/v1/prices", "inject_price",
			func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error) {
				var req sharePriceRequest
				if err := decodeBody(r, &req); err != nil {
					return nil, err
				}
				if req.Pool == "" {
					return nil, badRequestf("pool is required")
				}
				if err := ingest.InjectSharePrice(ctx, req.Pool, req.SharePrice, req.PriceSequence); err != nil {
					return nil, err
				}
				return map[string]interface{}{"accepted": true}, nil
			},
		},
	}

	return s.registerRoutes(mux, routes)
}

// ============================================================================
// Helpers
// ============================================================================

func (s *GRPCServer) registerRoutes(mux *runtime.ServeMux, routes []route) error {
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, s.instrument(rt.endpoint, rt.handler)); err != nil {
			return fmt.Errorf("route %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

type apiError struct {
	code    int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequestf(format string, args ...interface{}) error {
	return &apiError{code: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequestf("decode request body: %v", err)
	}
	return nil
}

// instrument wraps a handler with request counting, latency observation, and
// JSON response encoding.
func (s *GRPCServer) instrument(endpoint string, handler routeHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		start := time.Now()
		result, err := handler(r.Context(), r, params)
		if s.deps.Metrics != nil {
			s.deps.Metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}

		if err != nil {
			code := errorStatus(err)
			if s.deps.Metrics != nil {
				s.deps.Metrics.QueryRequests.WithLabelValues(endpoint, "error").Inc()
				s.deps.Metrics.QueryErrors.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
			}
			writeJSONError(w, code, err)
			return
		}

		if s.deps.Metrics != nil {
			s.deps.Metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
			log.Printf("ERROR: encode %s response: %v", endpoint, encErr)
		}
	}
}

func errorStatus(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.code
	}
	switch {
	case errors.Is(err, query.ErrPoolNotFound), errors.Is(err, query.ErrCheckpointNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": err.Error(),
	})
}

func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
