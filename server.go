package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"callcoach/database/postgres"
	"callcoach/evaluation"
	"callcoach/logger"
	"callcoach/modelapi/geminiapi"
	"callcoach/modelapi/openaiapi"
	"callcoach/scenario"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"github.com/hyperdxio/otel-config-go/otelconfig"
)

const defaultPort = "80"

type server struct {
	logger  *logger.LogMiddleware
	advisor *evaluation.Advisor
	db      *postgres.Database
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	godotenv.Load()
	production := os.Getenv("PRODUCTION") != ""

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		log.Fatalf("Error setting up OTel SDK - %e", err)
	}
	defer otelShutdown()
	ctx := context.Background()

	logExporter, _ := otlplogs.NewExporter(ctx)
	loggerProvider := sdk.NewLoggerProvider(sdk.WithBatcher(logExporter))
	defer loggerProvider.Shutdown(ctx)

	LogMiddleware := logger.Connect(logger.LoggerConnectProps{Production: production, LoggerProvider: loggerProvider})
	defer LogMiddleware.Sync()

	coach := connectGenerator(ctx, LogMiddleware, os.Getenv("COACH_PROVIDER"), os.Getenv("COACH_MODEL"))
	grader := connectGenerator(ctx, LogMiddleware, os.Getenv("GRADER_PROVIDER"), os.Getenv("GRADER_MODEL"))

	advisor := evaluation.Connect(ctx, evaluation.AdvisorConnectProps{
		Logger: LogMiddleware,
		Coach:  coach,
		Grader: grader,
	})

	// Report persistence is optional; the advisory paths work without it.
	var db *postgres.Database
	if os.Getenv("POSTGRES_DB_HOST") != "" {
		db, err = postgres.Connect(ctx, postgres.DatabaseConnectProps{Logger: LogMiddleware})
		if err != nil {
			LogMiddleware.Logger(ctx).Error("[Server] Report store unavailable, continuing without persistence", zap.Error(err))
			db = nil
		}
	}

	s := &server{logger: LogMiddleware, advisor: advisor, db: db}

	Logger := LogMiddleware.Logger(ctx)
	if production {
		Logger.Info("[Server] Starting advisory server in production mode", zap.String("port", port))
	} else {
		Logger.Info("[Server] Starting advisory server in development mode", zap.String("port", port))
	}

	handler := otelhttp.NewHandler(s.routes(), "callcoach")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		Logger.Fatal("[Server] Server stopped", zap.Error(err))
	}
}

// connectGenerator selects the backend for one of the two external generator
// invocations. Gemini is the default; OPENAI serves deployments keyed for it.
func connectGenerator(ctx context.Context, logMiddleware *logger.LogMiddleware, provider string, model string) evaluation.Generator {
	if provider == "openai" {
		return openaiapi.Connect(ctx, openaiapi.OpenAIConnectProps{Logger: logMiddleware, Model: model})
	}
	return geminiapi.Connect(ctx, geminiapi.GeminiConnectProps{Logger: logMiddleware, Model: model})
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLoggerMiddleware())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/coach", s.handleCoach)
		r.Post("/exam", s.handleExam)
		r.Post("/checklist", s.handleChecklist)
		r.Get("/scenarios", s.handleScenarios)
		r.Post("/instructions", s.handleInstructions)
		r.Get("/reports/{sessionID}", s.handleReports)
	})

	return r
}

func (s *server) requestLoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s.logger.Logger(ctx).Info("Request Received", zap.String("url", r.URL.Path), zap.String("method", r.Method))
			next.ServeHTTP(w, r)
			s.logger.Logger(ctx).Info("Request Completed", zap.String("path", r.URL.Path), zap.String("method", r.Method))
		})
	}
}

type evaluateRequest struct {
	SessionID    string `json:"session_id"`
	Transcript   string `json:"transcript"`
	CustomerType string `json:"customer_type"`
	EmotionLevel *int   `json:"emotion_level"`
}

func (s *server) handleCoach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.advisor.CoachTips(ctx, req.Transcript)
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleExam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.advisor.GradeExam(ctx, req.Transcript)

	if s.db != nil && req.SessionID != "" {
		if err := s.db.SaveReport(ctx, postgres.SaveReportProps{
			SessionID: req.SessionID,
			Kind:      "exam",
			Score:     result.Score,
			Passed:    result.Pass,
			Report:    result,
		}); err != nil {
			s.logger.Logger(ctx).Warn("[Server] Could not persist exam report", zap.Error(err), zap.String("session_id", req.SessionID))
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.advisor.EvaluateChecklist(ctx, evaluation.EvaluateChecklistProps{
		Transcript:   req.Transcript,
		CustomerType: req.CustomerType,
		EmotionLevel: req.EmotionLevel,
	})

	if s.db != nil && req.SessionID != "" {
		if err := s.db.SaveReport(ctx, postgres.SaveReportProps{
			SessionID: req.SessionID,
			Kind:      "checklist",
			Score:     result.ChecklistScore,
			Passed:    result.ChecklistScore >= 70,
			Report:    result,
		}); err != nil {
			s.logger.Logger(ctx).Warn("[Server] Could not persist checklist report", zap.Error(err), zap.String("session_id", req.SessionID))
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	writeJSON(w, http.StatusOK, map[string]any{
		"levels":    scenario.Levels(),
		"scenarios": scenario.List(level),
	})
}

type instructionsRequest struct {
	Level      string `json:"level"`
	ScenarioID string `json:"scenario_id"`
}

func (s *server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	var req instructionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"instructions": scenario.BuildCustomerInstructions(req.Level, req.ScenarioID),
	})
}

func (s *server) handleReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "report store not configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	reports, err := s.db.ListReports(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load reports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "reports": reports})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
