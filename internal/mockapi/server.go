// Package mockapi is an in-memory stand-in for the KUMSS REST backend. It
// serves the same list envelope, filters, ordering, pagination and error
// bodies the console expects, for development and tests.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Prefix is the API root every collection is served under.
const Prefix = "/api/v1"

var reserved = map[string]bool{"search": true, "ordering": true, "page": true, "page_size": true}

// Options configure a Server.
type Options struct {
	Address string
	// Token, when set, is required as a bearer token on every request.
	Token   string
	Latency time.Duration
	// RequestLog receives one line per request; nil disables it.
	RequestLog io.Writer
}

// Server is the mock backend.
type Server struct {
	opts  Options
	store *Store
	app   *echo.Echo
}

var _ http.Handler = (*Server)(nil)

// NewServer serves store.
func NewServer(store *Store, opts Options) *Server {
	s := &Server{opts: opts, store: store, app: echo.New()}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if s.opts.RequestLog != nil {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Output: s.opts.RequestLog}))
	}
	s.app.Use(middleware.Recover())
	s.app.HTTPErrorHandler = errorHandler

	api := s.app.Group(Prefix)
	if s.opts.Token != "" {
		api.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: func(key string, _ echo.Context) (bool, error) {
				return key == s.opts.Token, nil
			},
			ErrorHandler: func(error, echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			},
		}))
	}
	if s.opts.Latency > 0 {
		api.Use(s.delay)
	}
	for _, path := range s.store.Paths() {
		s.register(api, path)
	}
}

func (s *Server) delay(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case <-time.After(s.opts.Latency):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
		return next(c)
	}
}

func (s *Server) register(g *echo.Group, path string) {
	base := "/" + path
	g.GET(base, s.list(path))
	g.POST(base, s.create(path))
	g.GET(base+"/:id", s.get(path))
	g.PATCH(base+"/:id", s.update(path))
	g.PUT(base+"/:id", s.update(path))
	g.DELETE(base+"/:id", s.remove(path))
}

// ServeHTTP lets tests mount the server on httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// Start listens on opts.Address until Shutdown.
func (s *Server) Start() error {
	err := s.app.Start(s.opts.Address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

type pageBody struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []map[string]any `json:"results"`
}

func (s *Server) list(path string) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParams()
		p := ListParams{
			Search:   q.Get("search"),
			Ordering: q.Get("ordering"),
			Page:     1,
			PageSize: 20,
			Filters:  map[string]string{},
		}
		if v := q.Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return echo.NewHTTPError(http.StatusNotFound, "Invalid page.")
			}
			p.Page = n
		}
		if v := q.Get("page_size"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				p.PageSize = min(n, 100)
			}
		}
		for k := range q {
			if !reserved[k] {
				p.Filters[k] = q.Get(k)
			}
		}

		rows, count, err := s.store.List(path, p)
		if errors.Is(err, errInvalidPage) {
			return echo.NewHTTPError(http.StatusNotFound, "Invalid page.")
		}
		if err != nil {
			return err
		}
		body := pageBody{Count: count, Results: rows}
		if p.Page*p.PageSize < count {
			body.Next = pageURL(c, p.Page+1)
		}
		if p.Page > 1 {
			body.Previous = pageURL(c, p.Page-1)
		}
		return c.JSON(http.StatusOK, body)
	}
}

// pageURL is the request url with page replaced, absolute like the
// backend's next/previous links.
func pageURL(c echo.Context, page int) *string {
	req := c.Request()
	q := url.Values{}
	for k, v := range req.URL.Query() {
		q[k] = v
	}
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: c.Scheme(), Host: req.Host, Path: strings.TrimRight(req.URL.Path, "/") + "/", RawQuery: q.Encode()}
	out := u.String()
	return &out
}

func parseID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return id, nil
}

func (s *Server) get(path string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		row, err := s.store.Get(path, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, row)
	}
}

// decodeBody reads a JSON object. Bind is avoided because it would also
// copy path params into the map.
func decodeBody(c echo.Context) (map[string]any, error) {
	body := map[string]any{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "JSON parse error.")
	}
	return body, nil
}

func (s *Server) create(path string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := decodeBody(c)
		if err != nil {
			return err
		}
		row, err := s.store.Create(path, body)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, row)
	}
}

func (s *Server) update(path string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		body, err := decodeBody(c)
		if err != nil {
			return err
		}
		row, err := s.store.Update(path, id, body)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, row)
	}
}

func (s *Server) remove(path string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := s.store.Delete(path, id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// errorHandler renders errors the way the backend does: {"detail": ...}
// or a field map for validation failures.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var body any = map[string]string{"detail": "A server error occurred."}

	var fields FieldErrors
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &fields):
		code, body = http.StatusBadRequest, fields
	case errors.Is(err, errNotFound):
		code, body = http.StatusNotFound, map[string]string{"detail": "Not found."}
	case errors.As(err, &herr):
		code = herr.Code
		msg, ok := herr.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(code)
		}
		body = map[string]string{"detail": msg}
	case errors.Is(err, context.Canceled):
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
