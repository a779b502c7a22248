package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/autocompanion/autocompanion/internal/apperr"
	"github.com/autocompanion/autocompanion/internal/auth"
	"github.com/autocompanion/autocompanion/internal/expiry"
	"github.com/autocompanion/autocompanion/internal/itinerary"
	"github.com/autocompanion/autocompanion/internal/trip"
)

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type tourPlanResponse struct {
	Success   bool   `json:"success"`
	Itinerary string `json:"itinerary,omitempty"`
	Error     string `json:"error,omitempty"`
}

type generateResponse struct {
	Success   bool             `json:"success"`
	TripID    uint64           `json:"trip_id"`
	Itinerary []itinerary.Item `json:"itinerary"`
}

type tripResponse struct {
	Success bool       `json:"success"`
	Trip    *trip.Trip `json:"trip"`
}

type testAuthResponse struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type ocrRequest struct {
	FileURL string `json:"file_url"`
}

type ocrResponse struct {
	Success       bool   `json:"success"`
	ExpiryDate    string `json:"expiry_date"`
	ExtractedText string `json:"extracted_text"`
	Error         string `json:"error,omitempty"`
}

// planRequest is the wire form of a trip request. /api/trip/generate
// sends from/to/days; /api/ai-tour-plan sends origin/destination/day_count.
// Either spelling is accepted on both routes.
type planRequest struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Days        *flexInt `json:"days"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	DayCount    *flexInt `json:"day_count"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Budget      string   `json:"budget"`
	Travelers   *flexInt `json:"traveler_count"`
	VehicleType string   `json:"vehicle_type"`
	Interests   []string `json:"interests"`
	Pace        string   `json:"pace"`
	Style       string   `json:"style"`
}

// flexInt accepts a JSON number or a numeric string
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", data)
	}
	*f = flexInt(n)
	return nil
}

func (f *flexInt) intPtr() *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func (p planRequest) toTripRequest() (itinerary.TripRequest, error) {
	req := itinerary.TripRequest{
		Origin:        firstNonEmpty(p.From, p.Origin),
		Destination:   firstNonEmpty(p.To, p.Destination),
		DayCount:      p.Days.intPtr(),
		Budget:        p.Budget,
		TravelerCount: p.Travelers.intPtr(),
		VehicleType:   p.VehicleType,
		Interests:     p.Interests,
		Pace:          itinerary.Pace(strings.ToLower(strings.TrimSpace(p.Pace))),
		Style:         p.Style,
	}
	if req.DayCount == nil {
		req.DayCount = p.DayCount.intPtr()
	}

	var err error
	if req.StartDate, err = parseDate("start_date", p.StartDate); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDate("end_date", p.EndDate); err != nil {
		return req, err
	}
	return req, nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperr.Validation("%s must be YYYY-MM-DD, got %q", field, value)
	}
	return &t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// writeJSON writes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps err to a status code and writes the error envelope
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.Status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "error", err, "trace_id", traceID(r.Context()))
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// decodeBody reads a single JSON value into v. An empty body leaves v
// untouched; anything after the value is rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request body: unexpected data after JSON value")
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "AutoCompanion backend running"})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleAPIPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "pong"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)})
}

// handleTourPlan returns the generated itinerary as raw text without
// storing it
func (s *Server) handleTourPlan(w http.ResponseWriter, r *http.Request) {
	var body planRequest
	err := decodeBody(w, r, &body)
	if err == nil {
		var req itinerary.TripRequest
		if req, err = body.toTripRequest(); err == nil {
			var text string
			if text, err = s.planner.Plan(r.Context(), req); err == nil {
				writeJSON(w, http.StatusOK, tourPlanResponse{Success: true, Itinerary: text})
				return
			}
		}
	}

	code := apperr.Status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("Tour plan failed", "error", err, "trace_id", traceID(r.Context()))
	}
	writeJSON(w, code, tourPlanResponse{Error: err.Error()})
}

// handleGenerateTrip generates, stores and returns an itinerary for the caller
func (s *Server) handleGenerateTrip(w http.ResponseWriter, r *http.Request) {
	var body planRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := body.toTripRequest()
	if err != nil {
		writeError(w, r, err)
		return
	}

	caller := auth.FromContext(r.Context())
	result, err := s.trips.Generate(r.Context(), caller.UID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Success:   true,
		TripID:    result.TripID,
		Itinerary: result.Itinerary,
	})
}

// handleTestAuth echoes the verified identity
func (s *Server) handleTestAuth(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, testAuthResponse{
		UID:     caller.UID,
		Email:   caller.Email,
		Message: "Firebase token is valid",
	})
}

// handleGetTrip returns one of the caller's stored trips
func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, apperr.Validation("invalid trip id %q", r.PathValue("id")))
		return
	}

	caller := auth.FromContext(r.Context())
	t, err := s.trips.Get(r.Context(), caller.UID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripResponse{Success: true, Trip: t})
}

// handleOCR reads the expiry date from the image at file_url. Every
// failure still answers with the full OCR envelope.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var body ocrRequest
	err := decodeBody(w, r, &body)
	if err == nil {
		doc, extractErr := s.documents.ExtractFromURL(r.Context(), body.FileURL)
		if extractErr == nil {
			writeJSON(w, http.StatusOK, ocrResponse{
				Success:       true,
				ExpiryDate:    doc.ExpiryDate,
				ExtractedText: doc.RawText,
			})
			return
		}
		err = extractErr
	}

	code := apperr.Status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("OCR failed", "file_url", body.FileURL, "error", err, "trace_id", traceID(r.Context()))
	}
	writeJSON(w, code, ocrResponse{
		ExpiryDate:    expiry.NotDetected,
		ExtractedText: "OCR error: " + err.Error(),
		Error:         err.Error(),
	})
}
