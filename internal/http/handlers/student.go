package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campuspulse-backend/internal/data/repos"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/http/response"
	"github.com/yungbote/campuspulse-backend/internal/intake"
	"github.com/yungbote/campuspulse-backend/internal/platform/apierr"
	"github.com/yungbote/campuspulse-backend/internal/platform/ctxutil"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
	"github.com/yungbote/campuspulse-backend/internal/services"
)

type StudentHandler struct {
	log            *logger.Logger
	studentService services.StudentService
}

func NewStudentHandler(log *logger.Logger, studentService services.StudentService) *StudentHandler {
	return &StudentHandler{log: log.With("handler", "StudentHandler"), studentService: studentService}
}

type questionView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Low   string `json:"low"`
	High  string `json:"high"`
}

type intakeView struct {
	Step     string        `json:"step"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Question *questionView `json:"question,omitempty"`
	Draft    pulse.Draft   `json:"draft"`
	Scale    pulse.Scale   `json:"scale"`
}

func viewOf(w *intake.Wizard) intakeView {
	step := w.CurrentStep()
	v := intakeView{
		Step:  step.String(),
		Index: int(step),
		Total: int(intake.StepFreeText),
		Draft: w.Draft(),
		Scale: w.Scale(),
	}
	if dim, ok := step.Dimension(); ok {
		low, high := dim.Anchors()
		v.Question = &questionView{Key: dim.String(), Label: dim.Label(), Low: low, High: high}
	}
	return v
}

func studentHash(c *gin.Context) (string, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.Subject == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing student identity"))
		return "", false
	}
	return rd.Subject, true
}

func (h *StudentHandler) wizard(c *gin.Context) (*intake.Wizard, bool) {
	hash, ok := studentHash(c)
	if !ok {
		return nil, false
	}
	w, err := h.studentService.Wizard(c.Request.Context(), hash)
	if err != nil {
		h.respondStoreError(c, err)
		return nil, false
	}
	return w, true
}

func (h *StudentHandler) respondIntakeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, intake.ErrSubmitting):
		response.RespondAPIError(c, apierr.Conflict("submission_in_progress", err), "")
	case errors.Is(err, intake.ErrInvalidTransition):
		response.RespondAPIError(c, apierr.Conflict("invalid_transition", err), "")
	case errors.Is(err, pulse.ErrRatingOutOfRange),
		errors.Is(err, pulse.ErrRatingOffStep),
		errors.Is(err, pulse.ErrRatingNotNumber):
		response.RespondAPIError(c, apierr.BadRequest("invalid_rating", err), "")
	default:
		h.respondStoreError(c, err)
	}
}

func (h *StudentHandler) respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, repos.ErrCorruptCollection) {
		response.RespondAPIError(c, err, "store_corrupt")
		return
	}
	response.RespondAPIError(c, err, "store_unavailable")
}

func (h *StudentHandler) GetIntake(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	response.RespondOK(c, viewOf(w))
}

func (h *StudentHandler) step(move func(w *intake.Wizard) (intake.Step, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, ok := h.wizard(c)
		if !ok {
			return
		}
		if _, err := move(w); err != nil {
			h.respondIntakeError(c, err)
			return
		}
		response.RespondOK(c, viewOf(w))
	}
}

func (h *StudentHandler) Next() gin.HandlerFunc {
	return h.step(func(w *intake.Wizard) (intake.Step, error) { return w.Next() })
}

func (h *StudentHandler) Back() gin.HandlerFunc {
	return h.step(func(w *intake.Wizard) (intake.Step, error) { return w.Back() })
}

func (h *StudentHandler) Abandon(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	w.Abandon()
	response.RespondOK(c, viewOf(w))
}

func (h *StudentHandler) SetRating(c *gin.Context) {
	var req struct {
		Value *float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("value must be a number"))
		return
	}
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	if err := w.SetRating(*req.Value); err != nil {
		h.respondIntakeError(c, err)
		return
	}
	response.RespondOK(c, viewOf(w))
}

func (h *StudentHandler) SetText(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	if err := w.SetText(req.Text); err != nil {
		h.respondIntakeError(c, err)
		return
	}
	response.RespondOK(c, viewOf(w))
}

func (h *StudentHandler) Submit(c *gin.Context) {
	w, ok := h.wizard(c)
	if !ok {
		return
	}
	entry, err := w.Submit(c.Request.Context())
	if err != nil {
		h.respondIntakeError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": entry, "intake": viewOf(w)})
}

func (h *StudentHandler) History(c *gin.Context) {
	hash, ok := studentHash(c)
	if !ok {
		return
	}
	entries, err := h.studentService.History(c.Request.Context(), hash)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries, "count": len(entries)})
}

func (h *StudentHandler) Suggestions(c *gin.Context) {
	hash, ok := studentHash(c)
	if !ok {
		return
	}
	s, err := h.studentService.Suggestions(c.Request.Context(), hash)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	response.RespondOK(c, s)
}

func (h *StudentHandler) Sync(c *gin.Context) {
	hash, ok := studentHash(c)
	if !ok {
		return
	}
	res, err := h.studentService.Sync(c.Request.Context(), hash)
	if errors.Is(err, services.ErrReportFailed) {
		h.log.Error("sync merged entries but report failed", "student_id", hash, "added", res.Added, "error", err)
		response.RespondPartial(c, http.StatusInternalServerError, "report_failed", "entries synced but weekly report failed", res)
		return
	}
	if err != nil {
		h.log.Error("sync failed", "student_id", hash, "error", err)
		h.respondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "result": res})
}
