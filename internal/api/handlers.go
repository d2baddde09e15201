package api

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/errors"
	"github.com/gmsas95/playground/internal/orchestrator"
	"github.com/gmsas95/playground/internal/store"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if s.config.Security.AdminPassword == "" || s.config.Security.JWTSecret == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "authentication not configured"})
	}
	if req.Password != s.config.Security.AdminPassword {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to sign token"})
	}

	return c.JSON(fiber.Map{"token": signed})
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Prompt is required"})
	}
	if req.Provider == "" {
		req.Provider = s.config.LLM.DefaultProvider
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), time.Duration(s.config.Server.WriteTimeout)*time.Second)
	defer cancel()

	result, err := s.orch.Generate(ctx, orchestrator.Request{
		Provider:    req.Provider,
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
			"code":  errors.GetCode(err),
		})
	}

	return c.JSON(result)
}

// handleStream is the SSE variant of handleGenerate. Content chunks are
// forwarded as they arrive; once the provider finishes, any successful action
// results are appended as their own events before the [DONE] terminator.
func (s *Server) handleStream(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Prompt is required"})
	}
	if req.Provider == "" {
		req.Provider = s.config.LLM.DefaultProvider
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	orchReq := orchestrator.Request{
		Provider:    req.Provider,
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	timeout := time.Duration(s.config.Server.WriteTimeout) * time.Second

	// The writer runs after this handler returns, so it must not touch the
	// fiber context. Everything it needs is captured above.
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := s.orch.GenerateStream(ctx, orchReq, func(chunk string) error {
			if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			fmt.Fprintf(w, "data: [ERROR] %s\n\n", err.Error())
			w.Flush()
			return
		}

		for _, res := range result.ActionResults {
			if !res.Success {
				continue
			}
			fmt.Fprintf(w, "data: [Action Result] %s\n\n", res.Message)
			w.Flush()
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

func (s *Server) handleListActions(c *fiber.Ctx) error {
	catalog := s.registry.Catalog()
	return c.JSON(fiber.Map{
		"actions": catalog,
		"count":   len(catalog),
	})
}

func (s *Server) handleExecuteActions(c *fiber.Ctx) error {
	var req ExecuteActionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Actions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "actions are required"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), time.Duration(s.config.Server.WriteTimeout)*time.Second)
	defer cancel()

	results := s.executor.ExecuteBatch(ctx, req.Actions)
	for i, inv := range req.Actions {
		s.metrics.RecordActionCall(inv.Name, results[i].Success)
	}

	return c.JSON(fiber.Map{"action_results": results})
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	provider := c.Query("provider")
	if provider == "" {
		provider = s.config.LLM.DefaultProvider
	}

	return c.JSON(fiber.Map{
		"provider": provider,
		"messages": s.history.Get(provider),
	})
}

func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	var req ClearHistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Provider == "" {
		req.Provider = s.config.LLM.DefaultProvider
	}

	s.history.Clear(req.Provider)
	return c.JSON(fiber.Map{
		"provider": req.Provider,
		"status":   "cleared",
	})
}

func (s *Server) handleListModels(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	out := make(map[string]map[string]string)
	for _, name := range s.orch.Providers() {
		provider, err := s.orch.Provider(name)
		if err != nil {
			continue
		}
		models, err := provider.Models(ctx)
		if err != nil {
			s.logger.Warn("Failed to list models",
				zap.String("provider", name),
				zap.Error(err),
			)
			models = map[string]string{}
		}
		out[name] = models
	}

	return c.JSON(fiber.Map{"models": out})
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	settings, err := s.store.AllSettings()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"settings": settings})
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var settings map[string]string
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	for key, value := range settings {
		if err := s.store.SetSetting(key, value); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{"status": "updated"})
}

func (s *Server) handleEvaluate(c *fiber.Ctx) error {
	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Prompt is required"})
	}
	if len(req.Targets) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "targets are required"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), time.Duration(s.config.Server.WriteTimeout)*time.Second)
	defer cancel()

	results := make([]store.EvaluationResult, len(req.Targets))
	var wg sync.WaitGroup
	for i, target := range req.Targets {
		wg.Add(1)
		go func(i int, target EvaluateTarget) {
			defer wg.Done()

			start := time.Now()
			res, err := s.orch.Generate(ctx, orchestrator.Request{
				Provider:    target.Provider,
				Model:       target.Model,
				Prompt:      req.Prompt,
				Temperature: 0.7,
			})
			elapsed := time.Since(start).Milliseconds()

			if err != nil {
				results[i] = store.EvaluationResult{
					Provider:   target.Provider,
					Model:      target.Model,
					DurationMs: elapsed,
					Success:    false,
					Error:      err.Error(),
				}
				return
			}
			results[i] = store.EvaluationResult{
				Provider:    target.Provider,
				Model:       res.ModelUsed,
				Content:     res.Content,
				InputUnits:  res.Usage.InputUnits,
				OutputUnits: res.Usage.OutputUnits,
				TotalCost:   res.Cost.TotalCost.String(),
				DurationMs:  elapsed,
				Success:     true,
			}
		}(i, target)
	}
	wg.Wait()

	run := &store.EvaluationRun{
		ID:      uuid.NewString(),
		Prompt:  req.Prompt,
		Results: results,
	}
	if err := s.store.SaveEvaluationRun(run); err != nil {
		s.logger.Error("Failed to persist evaluation run", zap.Error(err))
	}

	return c.JSON(run)
}

func (s *Server) handleListEvaluations(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	runs, err := s.store.ListEvaluationRuns(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"evaluations": runs})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.metrics.Snapshot())
}

func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrProviderNotConfigured.Code, errors.ErrBadRequest.Code:
		return fiber.StatusBadRequest
	case errors.ErrProviderUnavailable.Code, errors.ErrProviderResponse.Code:
		return fiber.StatusBadGateway
	case errors.ErrNotFound.Code:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
