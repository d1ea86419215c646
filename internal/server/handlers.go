package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"scansave/internal/chat"
	"scansave/internal/locale"
	"scansave/internal/receipt"
)

const maxUploadSize = int64(50 << 20) // high-resolution phone photos

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleUploadReceipt runs the extraction pipeline for one uploaded
// capture. Concurrent uploads are rejected with 409; extraction failure
// returns the localized banner message.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	lang := s.language(r)
	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	rec, err := s.pipeline.ProcessUpload(r.Context(), header.Filename, data, contentType, lang)
	if err != nil {
		if errors.Is(err, receipt.ErrBusy) {
			writeError(w, http.StatusConflict, "A receipt is already being processed")
			return
		}
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, locale.ExtractionError(lang))
		return
	}

	s.refreshTrend(lang)
	writeJSON(w, http.StatusCreated, rec)
}

// uploadContentType resolves the capture's MIME type, sniffing from the
// extension when the client did not send one.
func uploadContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// refreshTrend recomputes the weekly summary after a ledger change.
// Failures are silent beyond logging; the sentinel is not an error here.
func (s *Server) refreshTrend(lang string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if _, err := s.trend.Refresh(ctx, lang); err != nil && !errors.Is(err, receipt.ErrNotEnoughData) {
			slog.Warn("Weekly trend refresh failed", "error", err)
		}
	}()
}

// handleListReceipts returns the ledger, filtered by search query and
// category when given.
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	lang := s.language(r)
	records := s.ledger.Search(r.URL.Query().Get("q"), lang)

	if category := r.URL.Query().Get("category"); category != "" && category != "all" {
		filtered := records[:0:0]
		for _, rec := range records {
			if string(rec.Category) == category {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	if records == nil {
		records = []receipt.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetReceipt returns a single record
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.ledger.Find(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleReceiptImage returns the retained capture for a record
func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.pipeline.ReceiptImage(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a record and refreshes the trend
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.DeleteReceipt(r.PathValue("id")); err != nil {
		slog.Error("Error deleting receipt", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting receipt")
		return
	}
	s.refreshTrend(s.language(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleExportReceipts streams the ledger as CSV, one row per line item.
func (s *Server) handleExportReceipts(w http.ResponseWriter, r *http.Request) {
	lang := s.language(r)
	filename := fmt.Sprintf("scansave_receipts_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := receipt.WriteCSV(w, s.ledger.All(), lang); err != nil {
		slog.Error("Error exporting receipts", "error", err)
	}
}

// handleTrend refreshes and returns the weekly summary. The
// insufficient-data sentinel renders as a localized message, never as a
// failure; a refresh error falls back to the retained value.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	lang := s.language(r)

	summary, err := s.trend.Refresh(r.Context(), lang)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
	case errors.Is(err, receipt.ErrNotEnoughData):
		writeJSON(w, http.StatusOK, map[string]any{
			"summary":       nil,
			"notEnoughData": true,
			"message":       locale.TrendNotEnoughData(lang),
		})
	default:
		slog.Warn("Weekly trend refresh failed", "error", err)
		if current, ok := s.trend.Current(); ok {
			writeJSON(w, http.StatusOK, map[string]any{"summary": current})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": nil})
	}
}

// handleListSessions returns all sessions and the active id
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.chat.Sessions()
	var activeID string
	if active, ok := s.chat.ActiveSession(); ok {
		activeID = active.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"activeId": activeID,
	})
}

// handleNewSession creates a fresh active session
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	json.NewDecoder(r.Body).Decode(&req) // body is optional
	lang := req.Language
	if lang == "" {
		lang = s.defaultLang
	}
	writeJSON(w, http.StatusCreated, s.chat.NewSession(lang))
}

// handleActivateSession switches the active session
func (s *Server) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	lang := req.Language
	if lang == "" {
		lang = s.defaultLang
	}
	sess, err := s.chat.Activate(r.PathValue("id"), lang)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession removes a session
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.chat.DeleteSession(r.PathValue("id"), s.defaultLang)
	w.WriteHeader(http.StatusNoContent)
}

// handleChat sends one message on the active session. Transcribed speech
// arrives here as ordinary text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Message text required")
		return
	}
	lang := req.Language
	if lang == "" {
		lang = s.defaultLang
	}

	msg, err := s.chat.Send(r.Context(), req.Text, lang)
	if err != nil {
		if errors.Is(err, chat.ErrBusy) {
			writeError(w, http.StatusConflict, "A message is already being sent")
			return
		}
		slog.Error("Error sending chat message", "error", err)
		writeError(w, http.StatusInternalServerError, "Error sending message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       msg,
		"sourcesNotice": s.chat.TakeSourcesNotice(),
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
