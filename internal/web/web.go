// Package web serves a read-mostly HTML view of the journal plus a small JSON
// API over the same record store the TUI uses.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/db"
	"github.com/Joseda-hg/lazyjournal/internal/model"
	"github.com/Joseda-hg/lazyjournal/internal/view"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const dateLayout = "2006-01-02"

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type Config struct {
	Host string
	Port int
}

type Server struct {
	echo   *echo.Echo
	store  *db.Store
	logger *zap.Logger
	config *Config
	now    func() time.Time
}

func NewServer(store *db.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &templateRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.tmpl")),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		store:  store,
		logger: logger,
		config: cfg,
		now:    time.Now,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/badges", s.handleBadges)
	api.GET("/tasks", s.handleListTasks)
	api.POST("/tasks", s.handleCreateTask)
	api.GET("/tasks/:id", s.handleGetTask)
	api.PATCH("/tasks/:id", s.handleUpdateTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)
	api.POST("/tasks/:id/toggle", s.handleToggleTask)
	api.GET("/tasks/:id/images/:n", s.handleImage)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting web server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	return s.echo.Shutdown(ctx)
}

type attachmentRef struct {
	Index int    `json:"index"`
	MIME  string `json:"mime"`
	Size  int    `json:"size"`
	URL   string `json:"url"`
}

type taskResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Completed   bool            `json:"completed"`
	Type        model.Type      `json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
	Attachments []attachmentRef `json:"attachments"`
}

func newTaskResponse(task model.Task) taskResponse {
	images := task.Attachments()
	refs := make([]attachmentRef, 0, len(images))
	for i, img := range images {
		refs = append(refs, attachmentRef{
			Index: i,
			MIME:  img.MIME,
			Size:  img.Size(),
			URL:   imageURL(task.ID, i),
		})
	}
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Type:        task.Type,
		CreatedAt:   task.CreatedAt,
		Attachments: refs,
	}
}

func imageURL(taskID int64, index int) string {
	return fmt.Sprintf("/api/tasks/%d/images/%d", taskID, index)
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

type tabLink struct {
	Name   view.Tab
	Badge  int
	Active bool
}

type row struct {
	Task   model.Task
	Filed  string
	Images []string
}

func (s *Server) handleIndex(c echo.Context) error {
	tab, selected, err := s.viewParams(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	all, err := s.store.List(c.Request().Context())
	if err != nil {
		return s.internalError("list records", err)
	}
	now := s.now()
	badges := view.CountBadges(all, now)

	tabs := make([]tabLink, 0, len(view.Tabs))
	for _, t := range view.Tabs {
		tabs = append(tabs, tabLink{Name: t, Badge: badges.For(t), Active: t == tab})
	}

	visible := view.Visible(all, tab, selected, nil, now)
	rows := make([]row, 0, len(visible))
	for _, task := range visible {
		r := row{Task: task, Filed: task.CreatedAt.Format("2006-01-02 15:04")}
		for i := range task.Attachments() {
			r.Images = append(r.Images, imageURL(task.ID, i))
		}
		rows = append(rows, r)
	}

	data := struct {
		Tab   view.Tab
		Tabs  []tabLink
		Label string
		Date  string
		Prev  string
		Next  string
		Rows  []row
	}{
		Tab:   tab,
		Tabs:  tabs,
		Label: view.Label(tab, selected),
		Date:  selected.Format(dateLayout),
		Prev:  view.Shift(tab, selected, -1).Format(dateLayout),
		Next:  view.Shift(tab, selected, 1).Format(dateLayout),
		Rows:  rows,
	}
	return c.Render(http.StatusOK, "index.tmpl", data)
}

// viewParams reads ?tab= and ?date=; the date defaults to today.
func (s *Server) viewParams(c echo.Context) (view.Tab, time.Time, error) {
	tab, err := view.ParseTab(c.QueryParam("tab"))
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	value := strings.TrimSpace(c.QueryParam("date"))
	if value == "" {
		return tab, now, nil
	}
	date, err := time.ParseInLocation(dateLayout, value, now.Location())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	// keep the time of day so records filed from the web sort like TUI ones
	date = date.Add(now.Sub(view.StartOfDay(now)))
	return tab, date, nil
}

func (s *Server) handleBadges(c echo.Context) error {
	all, err := s.store.List(c.Request().Context())
	if err != nil {
		return s.internalError("list records", err)
	}
	return c.JSON(http.StatusOK, view.CountBadges(all, s.now()))
}

// handleListTasks returns the visible list for ?tab=&date=, or every record
// with ?all=true.
func (s *Server) handleListTasks(c echo.Context) error {
	all, err := s.store.List(c.Request().Context())
	if err != nil {
		return s.internalError("list records", err)
	}

	tasks := all
	if showAll, _ := strconv.ParseBool(c.QueryParam("all")); !showAll {
		tab, selected, err := s.viewParams(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		tasks = view.Visible(all, tab, selected, nil, s.now())
	}

	response := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, newTaskResponse(task))
	}
	return c.JSON(http.StatusOK, response)
}

type imagePayload struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

type CreateTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Date        string         `json:"date"`
	Images      []imagePayload `json:"images"`
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	taskType := model.TypeDay
	if req.Type != "" {
		parsed, err := model.ParseType(req.Type)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		taskType = parsed
	}

	now := s.now()
	createdAt := now
	if req.Date != "" {
		parsed, err := parseDate(req.Date, now)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		createdAt = parsed
	}

	var images []model.Image
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MIME
		if mime == "" {
			mime = http.DetectContentType(img.Data)
		}
		images = append(images, model.Image{MIME: mime, Data: img.Data})
	}

	id, err := s.store.Add(c.Request().Context(), db.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        taskType,
		Images:      images,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return s.storeError("add record", err)
	}

	task, err := s.store.Get(c.Request().Context(), id)
	if err != nil {
		return s.storeError("load record", err)
	}
	return c.JSON(http.StatusCreated, newTaskResponse(task))
}

func parseDate(value string, now time.Time) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return parsed.Add(now.Sub(view.StartOfDay(now))), nil
}

func (s *Server) handleGetTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	task, err := s.store.Get(c.Request().Context(), id)
	if err != nil {
		return s.storeError("load record", err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	task, err := s.store.Update(c.Request().Context(), id, db.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		return s.storeError("update record", err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleToggleTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return s.storeError("load record", err)
	}
	completed := !task.Completed
	task, err = s.store.Update(ctx, id, db.TaskPatch{Completed: &completed})
	if err != nil {
		return s.storeError("toggle record", err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		return s.storeError("delete record", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleImage(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown attachment")
	}

	task, err := s.store.Get(c.Request().Context(), id)
	if err != nil {
		return s.storeError("load record", err)
	}
	images := task.Attachments()
	if index < 0 || index >= len(images) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown attachment")
	}
	img := images[index]
	mime := img.MIME
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	return c.Blob(http.StatusOK, mime, img.Data)
}

func taskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "unknown record")
	}
	return id, nil
}

func (s *Server) storeError(action string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrEmptyTitle), errors.Is(err, db.ErrInvalidType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return s.internalError(action, err)
}

func (s *Server) internalError(action string, err error) error {
	s.logger.Error(action+" failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, action+" failed")
}
