package ledger

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/tax-filer/internal/scanning"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleIndex serves the dashboard
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleUploadReceipt handles receipt upload and processing
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	// 50MB cap to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = scanning.MediaTypeForPath(header.Filename)
	}

	processed, err := s.service.ProcessReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(processed); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListRecords returns all ledger rows
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.Records()
	if err != nil {
		slog.Error("Error loading records", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleRecordSummary returns per-category totals and the grand total
func (s *Server) handleRecordSummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.CategoryTotals()
	if err != nil {
		slog.Error("Error summarizing records", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var grandTotal float64
	for _, t := range totals {
		grandTotal += t.Total
	}

	response := map[string]interface{}{
		"categories": totals,
		"total":      grandTotal,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleExportRecords serves the raw ledger CSV for download
func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportCSV()
	if err != nil {
		slog.Error("Error exporting records", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="tax-records.csv"`)
	w.Write(data)
}

// handleListReceipts returns all archived receipt entries
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetReceiptFile returns the original image for an archived receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
