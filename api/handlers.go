package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
)

// SubmitQuotationResponse is returned after a quotation request is stored.
type SubmitQuotationResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// QuotationListResponse wraps a list of quotation requests.
type QuotationListResponse struct {
	Quotations []*quotation.Record `json:"quotations"`
	Count      int                 `json:"count"`
}

// StatusUpdateRequest is the body of PATCH /admin/quotations/:id.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// ChatTurnListResponse wraps a list of recorded chat turns.
type ChatTurnListResponse struct {
	Turns []*llm.ChatTurn `json:"turns"`
	Count int             `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleSubmitQuotation stores a quotation request from the services page.
func (s *Server) handleSubmitQuotation(c *fiber.Ctx) error {
	var req quotation.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Error("error processing quotation request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "Failed to process request"})
	}

	ctx := c.UserContext()
	rec, err := s.quotes.Submit(ctx, &req)
	switch {
	case errors.Is(err, quotation.ErrMissingFields):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "Missing required fields"})
	case err != nil:
		s.logger.Error("error saving quotation request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "Failed to save quotation request"})
	}

	s.publishQuotation(ctx, rec)

	return c.JSON(SubmitQuotationResponse{
		Success:   true,
		Message:   "Quotation request submitted successfully",
		RequestID: rec.ID,
	})
}

// handleListQuotations returns quotation requests, newest first.
// Query parameters:
//   - status: pending, contacted, converted, closed or all (default)
//   - limit: maximum number of records
func (s *Server) handleListQuotations(c *fiber.Ctx) error {
	status, err := quotation.ParseStatus(c.Query("status"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	limit, err := queryLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	records, err := s.quotes.List(c.UserContext(), quotation.Filter{Status: status, Limit: limit})
	if err != nil {
		s.logger.Error("failed to list quotations", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list quotations"})
	}
	if records == nil {
		records = []*quotation.Record{}
	}

	return c.JSON(QuotationListResponse{Quotations: records, Count: len(records)})
}

// handleQuotationSummary returns the number of requests per status.
func (s *Server) handleQuotationSummary(c *fiber.Ctx) error {
	summary, err := s.quotes.Summary(c.UserContext())
	if err != nil {
		s.logger.Error("failed to summarize quotations", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to summarize quotations"})
	}
	return c.JSON(summary)
}

// handleGetQuotation returns a single quotation request.
func (s *Server) handleGetQuotation(c *fiber.Ctx) error {
	rec, err := s.quotes.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.storageError(c, err, "failed to get quotation")
	}
	return c.JSON(rec)
}

// handleUpdateQuotationStatus moves a quotation request through the funnel.
func (s *Server) handleUpdateQuotationStatus(c *fiber.Ctx) error {
	var req StatusUpdateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	status, err := quotation.ParseStatus(req.Status)
	if err != nil || status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "status must be one of pending, contacted, converted, closed"})
	}

	rec, err := s.quotes.UpdateStatus(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return s.storageError(c, err, "failed to update quotation")
	}
	return c.JSON(rec)
}

// handleDeleteQuotation removes a quotation request.
func (s *Server) handleDeleteQuotation(c *fiber.Ctx) error {
	if err := s.quotes.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.storageError(c, err, "failed to delete quotation")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleListChatTurns returns recorded chat turns, newest first.
func (s *Server) handleListChatTurns(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	turns, err := s.storer.ListChatTurns(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("failed to list chat turns", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list chat turns"})
	}
	if turns == nil {
		turns = []*llm.ChatTurn{}
	}

	return c.JSON(ChatTurnListResponse{Turns: turns, Count: len(turns)})
}

func (s *Server) storageError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "quotation not found"})
	}
	s.logger.Error(msg, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msg})
}

func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}
