package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ChainSentry/internal/budget"
	xerrors "ChainSentry/internal/errors"
	"ChainSentry/internal/governance"
	"ChainSentry/internal/incubation"
	"ChainSentry/internal/observability/metrics"
	"ChainSentry/internal/payment"
	"ChainSentry/internal/storage/mysql"
	"ChainSentry/internal/swarm"
)

// Server 负责暴露 REST 接口,供外部驱动风险评估流水线。
type Server struct {
	addr      string
	runner    *swarm.Runner
	advisor   *governance.Advisor
	governor  *budget.Governor
	payments  *payment.Processor
	evaluator *incubation.Evaluator
	apps      mysql.AppRepository
	runs      mysql.RunRepository
}

// Deps 汇总服务依赖,按需注入,未注入的能力返回 503。
type Deps struct {
	Runner    *swarm.Runner
	Advisor   *governance.Advisor
	Governor  *budget.Governor
	Payments  *payment.Processor
	Evaluator *incubation.Evaluator
	Apps      mysql.AppRepository
	Runs      mysql.RunRepository
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, deps Deps) *Server {
	return &Server{
		addr:      addr,
		runner:    deps.Runner,
		advisor:   deps.Advisor,
		governor:  deps.Governor,
		payments:  deps.Payments,
		evaluator: deps.Evaluator,
		apps:      deps.Apps,
		runs:      deps.Runs,
	}
}

// Start 启动 HTTP 服务,直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/evaluations", s.instrument("evaluations", s.handleEvaluations))
	mux.HandleFunc("/api/v1/evaluations/", s.instrument("evaluation_detail", s.handleEvaluationDetail))
	mux.HandleFunc("/api/v1/votes/recommend", s.instrument("votes_recommend", s.handleRecommendVote))
	mux.HandleFunc("/api/v1/budget", s.instrument("budget", s.handleBudget))
	mux.HandleFunc("/api/v1/budget/spend", s.instrument("budget_spend", s.handleBudgetSpend))
	mux.HandleFunc("/api/v1/budget/deploy", s.instrument("budget_deploy", s.handleBudgetDeploy))
	mux.HandleFunc("/api/v1/payments/verify", s.instrument("payments_verify", s.handlePaymentVerify))
	mux.HandleFunc("/api/v1/apps/evaluate", s.instrument("apps_evaluate", s.handleAppEvaluate))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// instrument 为处理器补充请求指标。
func (s *Server) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateEvaluation(w, r)
	case http.MethodGet:
		s.handleListEvaluations(w, r)
	default:
		http.Error(w, "仅支持 GET/POST", http.StatusMethodNotAllowed)
	}
}

// handleCreateEvaluation 执行一次完整的风险评估。
func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "评估流水线未初始化", http.StatusServiceUnavailable)
		return
	}
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	tx, err := req.toInputTx()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	run, err := s.runner.RunSwarm(r.Context(), tx)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ObserveRun(string(run.Verdict.Decision), time.Since(start))
	writeJSON(w, run)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		http.Error(w, "运行仓库未初始化", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	results, err := s.runs.ListLatest(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, results)
}

func (s *Server) handleEvaluationDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.runs == nil {
		http.Error(w, "运行仓库未初始化", http.StatusServiceUnavailable)
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/api/v1/evaluations/")
	if runID == "" {
		http.Error(w, "缺少 run id", http.StatusBadRequest)
		return
	}
	record, err := s.runs.FindByID(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, record)
}

// handleRecommendVote 返回对一个提案的投票建议。
func (s *Server) handleRecommendVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.advisor == nil {
		http.Error(w, "投票顾问未初始化", http.StatusServiceUnavailable)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	intent, err := s.advisor.RecommendVote(r.Context(), req.ProposalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, intent)
}

// handleBudget 返回预算账本快照。
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.governor == nil {
		http.Error(w, "预算治理器未初始化", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.governor.Snapshot())
}

// handleBudgetSpend 原子地校验并记录一笔支出。
func (s *Server) handleBudgetSpend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.governor == nil {
		http.Error(w, "预算治理器未初始化", http.StatusServiceUnavailable)
		return
	}
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	verdict := s.governor.RecordSpend(req.AmountUSD)
	if !verdict.Allowed {
		metrics.ObserveBudgetDenial(string(verdict.Reason))
	}
	writeJSON(w, verdict)
}

// handleBudgetDeploy 对一笔部署预算做全量检查,返回逐项结果。
func (s *Server) handleBudgetDeploy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.governor == nil {
		http.Error(w, "预算治理器未初始化", http.StatusServiceUnavailable)
		return
	}
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	decision := s.governor.EvaluateDeploy(req.AmountUSD)
	if !decision.Deploy {
		metrics.ObserveBudgetDenial(string(decision.Reason))
	}
	writeJSON(w, decision)
}

// handlePaymentVerify 校验并消费一个支付引用。
func (s *Server) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.payments == nil {
		http.Error(w, "支付处理器未初始化", http.StatusServiceUnavailable)
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	status, err := s.payments.Consume(r.Context(), req.Reference)
	if err != nil {
		writeError(w, err)
		return
	}
	if status == payment.VerifyReplayed {
		metrics.ObservePaymentReplay()
	}
	writeJSON(w, paymentResponse{Status: string(status)})
}

// handleAppEvaluate 评估一个生成应用的表现并推进其状态。
func (s *Server) handleAppEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.evaluator == nil || s.apps == nil {
		http.Error(w, "孵化评估器未初始化", http.StatusServiceUnavailable)
		return
	}
	var req appEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	record, err := s.apps.FindByID(r.Context(), req.AppID)
	if err != nil {
		writeError(w, err)
		return
	}

	decision := s.evaluator.Evaluate(&record.App, req.Metrics)
	incubation.Apply(&record.App, decision, time.Now().UTC())
	record.Metrics = req.Metrics
	if err := s.apps.Save(r.Context(), *record); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, appEvaluationResponse{App: record.App, Decision: decision})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 把内部错误码映射为 HTTP 状态码。
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case xerrors.CodeNotFound:
		status = http.StatusNotFound
	case xerrors.CodeCapabilityFailure, xerrors.CodeTimeout:
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
