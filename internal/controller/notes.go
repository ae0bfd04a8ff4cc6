package controller

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/service"
)

// (POST /notes).
func (c *Controller) CreateNote(ctx echo.Context) error {
	var req models.NoteCreateRequest
	if err := ctx.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", service.ErrValidation)
	}

	note, err := c.noteService.Create(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return OK(ctx, http.StatusOK, note)
}

// (GET /notes).
func (c *Controller) ListNotes(ctx echo.Context, params ListNotesParams) error {
	skip := intOrDefault(params.Skip, 0)
	limit := intOrDefault(params.Limit, service.DefaultNotesLimit)

	notes, err := c.noteService.List(ctx.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	return OK(ctx, http.StatusOK, notes)
}

// (GET /notes/{id}).
func (c *Controller) GetNote(ctx echo.Context, id int64) error {
	note, err := c.noteService.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return OK(ctx, http.StatusOK, note)
}
