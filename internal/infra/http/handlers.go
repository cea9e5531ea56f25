package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"
	"coffeeshop/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type drinkRequest struct {
	Title  *string         `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

func (s *Server) handleListDrinks(c *gin.Context) {
	drinks, err := s.drinks.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]domain.DrinkShort, 0, len(drinks))
	for _, drink := range drinks {
		out = append(out, drink.Short())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": out})
}

func (s *Server) handleListDrinkDetails(c *gin.Context) {
	drinks, err := s.drinks.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]domain.DrinkLong, 0, len(drinks))
	for _, drink := range drinks {
		out = append(out, drink.Long())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": out})
}

func (s *Server) handleCreateDrink(c *gin.Context) {
	req, err := readDrinkRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	recipe, err := usecase.DecodeRecipe(req.Recipe)
	if err != nil {
		writeError(c, err)
		return
	}
	in := usecase.CreateDrinkInput{Recipe: recipe}
	if req.Title != nil {
		in.Title = *req.Title
	}
	drink, err := s.drinks.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []domain.DrinkLong{drink.Long()}})
}

func (s *Server) handleUpdateDrink(c *gin.Context) {
	id, ok := drinkIDParam(c)
	if !ok {
		writeError(c, domain.ErrNotFound)
		return
	}
	req, err := readDrinkRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	in := usecase.UpdateDrinkInput{Title: req.Title}
	if present(req.Recipe) {
		recipe, err := usecase.DecodeRecipe(req.Recipe)
		if err != nil {
			writeError(c, err)
			return
		}
		in.Recipe = &recipe
	}
	drink, err := s.drinks.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": drink.Long()})
}

func (s *Server) handleDeleteDrink(c *gin.Context) {
	id, ok := drinkIDParam(c)
	if !ok {
		writeError(c, domain.ErrNotFound)
		return
	}
	if err := s.drinks.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delete": id})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorStatus(c, http.StatusNotFound, "resource not found")
}

func (s *Server) handleNoMethod(c *gin.Context) {
	writeErrorStatus(c, http.StatusMethodNotAllowed, "method not allowed")
}

func drinkIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// readDrinkRequest separates syntax problems (400) from values of the wrong
// type (422).
func readDrinkRequest(c *gin.Context) (drinkRequest, error) {
	var req drinkRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	raw, err := c.GetRawData()
	if err != nil {
		return req, errBadRequest
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, errBadRequest
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return req, domain.ErrValidation
		}
		return req, errBadRequest
	}
	return req, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func writeError(c *gin.Context, err error) {
	if authErr, ok := domain.AsAuthError(err); ok {
		c.AbortWithStatusJSON(authErr.Status, errorResponse{
			Error:   authErr.Status,
			Message: authErr.Description,
			Code:    authErr.Code,
		})
		return
	}
	status, message := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, io.ErrUnexpectedEOF):
		status, message = http.StatusBadRequest, "bad request"
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrValidation):
		status, message = http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, domain.ErrConflict):
		status, message = http.StatusConflict, "conflict"
	}
	if status == http.StatusInternalServerError {
		logger.From(c.Request.Context()).Error("request failed", logger.Err(err))
	}
	writeErrorStatus(c, status, message)
}

func writeErrorStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:   status,
		Message: message,
	})
}
