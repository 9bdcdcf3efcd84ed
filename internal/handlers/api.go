// Package handlers implements the HTTP endpoints of the parse API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
	"github.com/rumor-ml/commons.systems/txparse/internal/extract"
	"github.com/rumor-ml/commons.systems/txparse/internal/llm"
	"github.com/rumor-ml/commons.systems/txparse/internal/pipeline"
	"github.com/rumor-ml/commons.systems/txparse/internal/validate"
)

// maxUploadBytes caps statement uploads. Broker statements are small; the
// cap mostly guards against accidental uploads of the wrong file.
const maxUploadBytes = 20 << 20

// Parser is the pipeline capability the handlers depend on.
type Parser interface {
	Parse(ctx context.Context, pdfBytes []byte, filename string, opts pipeline.Options) (*domain.ParseResult, bool, error)
	ParseText(ctx context.Context, text string, opts pipeline.Options) (*domain.ParseResult, error)
}

// HistoryReader serves stored transactions for historical queries.
type HistoryReader interface {
	TransactionsByISIN(ctx context.Context, isin string, limit int) ([]domain.Transaction, error)
}

// API handles parse and query requests.
type API struct {
	parser  Parser
	history HistoryReader
}

// NewAPI creates the API handler set. History may be nil when no
// persistent transaction store is configured.
func NewAPI(parser Parser, history HistoryReader) *API {
	return &API{parser: parser, history: history}
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseResponse wraps a result with request-level metadata.
type parseResponse struct {
	*domain.ParseResult
	Cached bool `json:"cached"`
}

// ParseStatement handles POST /api/parse. The statement travels as the
// multipart field "file"; the optional form value "aggregate" requests
// per-instrument totals.
func (h *API) ParseStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	pdfBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(pdfBytes) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}
	if len(pdfBytes) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "uploaded file exceeds size limit")
		return
	}

	opts := pipeline.Options{
		Aggregate: strings.EqualFold(r.FormValue("aggregate"), "true"),
	}

	result, cached, err := h.parser.Parse(r.Context(), pdfBytes, header.Filename, opts)
	if err != nil {
		status, msg := mapParseError(err)
		log.Printf("ERROR: parse of %s failed: %v", header.Filename, err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{ParseResult: result, Cached: cached})
}

// parseTextRequest is the body of POST /api/parse-text.
type parseTextRequest struct {
	Text      string `json:"text"`
	Aggregate bool   `json:"aggregate"`
}

// ParseText handles POST /api/parse-text: extraction already happened on
// the client side, so the statement text goes straight to the model. These
// results are never served from the cache.
func (h *API) ParseText(w http.ResponseWriter, r *http.Request) {
	var req parseTextRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text field is required")
		return
	}

	result, err := h.parser.ParseText(r.Context(), req.Text, pipeline.Options{Aggregate: req.Aggregate})
	if err != nil {
		status, msg := mapParseError(err)
		log.Printf("ERROR: text parse failed: %v", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{ParseResult: result, Cached: false})
}

// TransactionsByISIN handles GET /api/transactions/isin/{isin}.
func (h *API) TransactionsByISIN(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "transaction history is not configured")
		return
	}

	isin := strings.ToUpper(r.PathValue("isin"))
	if !domain.ValidISIN(isin) {
		writeError(w, http.StatusBadRequest, "invalid ISIN")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	transactions, err := h.history.TransactionsByISIN(r.Context(), isin, limit)
	if err != nil {
		log.Printf("ERROR: history query for %s failed: %v", isin, err)
		writeError(w, http.StatusInternalServerError, "failed to query transactions")
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"isin":         isin,
		"transactions": transactions,
	})
}

// mapParseError translates pipeline failures into HTTP semantics: document
// problems are the client's fault, backend and model-output problems are
// upstream failures.
func mapParseError(err error) (int, string) {
	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		switch extractErr.Kind {
		case extract.KindInvalidPDF:
			return http.StatusBadRequest, "uploaded file is not a valid PDF"
		case extract.KindEncrypted:
			return http.StatusUnprocessableEntity, "PDF is encrypted"
		case extract.KindNoText:
			return http.StatusUnprocessableEntity, "PDF contains no extractable text"
		}
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		if llmErr.Kind == llm.KindTransient {
			return http.StatusServiceUnavailable, "inference backend is temporarily unavailable"
		}
		return http.StatusBadGateway, "inference backend rejected the request"
	}

	var validateErr *validate.Error
	if errors.As(err, &validateErr) {
		return http.StatusBadGateway, "model output failed validation"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "request cancelled"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
