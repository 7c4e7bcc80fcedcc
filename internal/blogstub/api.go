package blogstub

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/ids"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/middleware"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
)

const (
	defaultPageSize = 10
	maxPageSize     = 500
	maxUploadBytes  = 10 << 20
)

// API serves the subset of the blog REST API the panel talks to.
type API struct {
	store *Store
	cfg   config.StubConfig
	log   zerolog.Logger
}

func New(cfg config.StubConfig, store *Store, log zerolog.Logger) *API {
	return &API{store: store, cfg: cfg, log: log.With().Str("component", "blogstub").Logger()}
}

func (a *API) Store() *Store {
	return a.store
}

func (a *API) Register(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	engine.POST("/api/token/", a.obtainToken)
	engine.POST("/api/token/refresh/", a.refreshToken)

	api := engine.Group("/api", middleware.Auth(a.cfg.AccessSecret, a.store.UserExists))
	api.GET("/users/users/", a.listUsers)
	api.GET("/users/users/:id/", a.getUser)

	blogGroup := api.Group("/blog", middleware.RequireAuthor(a.store.IsAuthor))
	for _, res := range []blog.Resource{blog.Posts, blog.Categories, blog.Tags, blog.SeriesResource, blog.Comments, blog.Authors, blog.Reactions, blog.MediaResource} {
		base := strings.TrimPrefix(res.Path, "/api/blog")
		name := res.Name
		blogGroup.GET(base, a.list(name))
		blogGroup.GET(base+":id/", a.get(name))
		blogGroup.PATCH(base+":id/", a.update(name))
		blogGroup.PUT(base+":id/", a.update(name))
		blogGroup.DELETE(base+":id/", a.remove(name))
		if name == blog.MediaResource.Name {
			blogGroup.POST(base, a.uploadMedia)
		} else {
			blogGroup.POST(base, a.create(name))
		}
	}
	blogGroup.POST("/posts/:id/publish/", a.publish)
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) obtainToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error"})
		return
	}
	errs := FieldErrors{}
	if strings.TrimSpace(req.Username) == "" {
		errs.add("username", "This field may not be blank.")
	}
	if req.Password == "" {
		errs.add("password", "This field may not be blank.")
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	u, ok := a.store.userByName(strings.TrimSpace(req.Username))
	if ok {
		ok, _ = security.VerifyPassword(req.Password, u.PasswordHash)
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	access, err := security.GenerateToken(a.cfg.AccessSecret, security.TokenTypeAccess, u.ID, a.cfg.AccessTTL)
	if err != nil {
		a.fail(c, err)
		return
	}
	refresh, err := security.GenerateToken(a.cfg.RefreshSecret, security.TokenTypeRefresh, u.ID, a.cfg.RefreshTTL)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.log.Info().Int("user_id", u.ID).Msg("token issued")
	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

func (a *API) refreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}
	claims, err := security.ParseToken(req.Refresh, a.cfg.RefreshSecret, security.TokenTypeRefresh)
	if err != nil || !a.store.UserExists(claims.UserID) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	access, err := security.GenerateToken(a.cfg.AccessSecret, security.TokenTypeAccess, claims.UserID, a.cfg.AccessTTL)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (a *API) getUser(c *gin.Context) {
	id := c.Param("id")
	if id == "me" {
		id = strconv.Itoa(actor(c))
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		notFound(c)
		return
	}
	u, ok := a.store.user(n)
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, u.row())
}

func (a *API) listUsers(c *gin.Context) {
	rows := a.store.allUsers()
	out := rows[:0]
	for _, row := range rows {
		if v := c.Query("username"); v != "" && !strings.EqualFold(v, fmt.Sprint(row["username"])) {
			continue
		}
		if v := c.Query("email"); v != "" && !strings.EqualFold(v, fmt.Sprint(row["email"])) {
			continue
		}
		out = append(out, row)
	}
	a.paginate(c, out)
}

func (a *API) list(name string) gin.HandlerFunc {
	sc := schemas[name]
	return func(c *gin.Context) {
		rows := a.store.List(name)
		query := c.Request.URL.Query()

		out := rows[:0]
		for _, row := range rows {
			if name == blog.Posts.Name && !ownedBy(row, actor(c)) {
				continue
			}
			if matches(sc, row, query) {
				out = append(out, row)
			}
		}
		if ordering := query.Get("ordering"); ordering != "" {
			orderRows(out, ordering)
		}
		a.paginate(c, out)
	}
}

func (a *API) get(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, err := a.store.Get(name, c.Param("id"))
		if err != nil || (name == blog.Posts.Name && !ownedBy(row, actor(c))) {
			notFound(c)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (a *API) create(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input map[string]any
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error - " + err.Error()})
			return
		}
		row, err := a.store.Create(name, input, actor(c))
		if err != nil {
			a.writeError(c, err)
			return
		}
		a.log.Info().Str("resource", name).Interface("id", row["id"]).Msg("created")
		c.JSON(http.StatusCreated, row)
	}
}

func (a *API) update(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.canWrite(c, name) {
			return
		}
		var input map[string]any
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error - " + err.Error()})
			return
		}
		row, err := a.store.Update(name, c.Param("id"), input, actor(c))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (a *API) remove(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.canWrite(c, name) {
			return
		}
		if err := a.store.Delete(name, c.Param("id")); err != nil {
			a.writeError(c, err)
			return
		}
		a.log.Info().Str("resource", name).Str("id", c.Param("id")).Msg("deleted")
		c.Status(http.StatusNoContent)
	}
}

func (a *API) publish(c *gin.Context) {
	if !a.canWrite(c, blog.Posts.Name) {
		return
	}
	row, err := a.store.Publish(c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (a *API) uploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"No file was submitted."}})
		return
	}
	f, err := fh.Open()
	if err != nil {
		a.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		a.fail(c, err)
		return
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	key := ids.New() + strings.ToLower(filepath.Ext(fh.Filename))
	row, err := a.store.Create(blog.MediaResource.Name, map[string]any{
		"title":       c.PostForm("title"),
		"alt_text":    c.PostForm("alt_text"),
		"file":        fh.Filename,
		"storage_key": key,
		"url":         "/media/" + key,
		"mime":        mime,
		"type":        strings.SplitN(mime, "/", 2)[0],
		"size":        len(data),
	}, actor(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// canWrite keeps authors to their own posts.
func (a *API) canWrite(c *gin.Context, name string) bool {
	if name != blog.Posts.Name {
		return true
	}
	row, err := a.store.Get(name, c.Param("id"))
	if err != nil {
		notFound(c)
		return false
	}
	if !ownedBy(row, actor(c)) {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return false
	}
	return true
}

func ownedBy(post map[string]any, userID int) bool {
	author, ok := post["author"].(map[string]any)
	return ok && author["id"] == userID
}

func actor(c *gin.Context) int {
	id, _ := middleware.CurrentUserID(c)
	return id
}

func (a *API) paginate(c *gin.Context, rows []map[string]any) {
	size := defaultPageSize
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 {
		size = min(v, maxPageSize)
	}
	page := 1
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return
		}
		page = n
	}

	total := len(rows)
	pages := max(1, (total+size-1)/size)
	if page > pages {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return
	}
	start := (page - 1) * size
	end := min(start+size, total)

	c.JSON(http.StatusOK, gin.H{
		"count":    total,
		"next":     pageLink(c, page+1, page < pages),
		"previous": pageLink(c, page-1, page > 1),
		"results":  rows[start:end],
	})
}

func pageLink(c *gin.Context, page int, ok bool) any {
	if !ok {
		return nil
	}
	query := c.Request.URL.Query()
	query.Set("page", strconv.Itoa(page))
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: query.Encode()}
	return u.String()
}

func (a *API) writeError(c *gin.Context, err error) {
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, fieldErrs)
	case errors.Is(err, ErrNotFound):
		notFound(c)
	default:
		a.fail(c, err)
	}
}

func (a *API) fail(c *gin.Context, err error) {
	a.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

// matches applies the list filters DRF would: exact fields, category and
// tags by id or slug, the published_* window, is_hot and search.
func matches(sc schema, row map[string]any, query url.Values) bool {
	for _, field := range sc.exact {
		if v := query.Get(field); v != "" && !strings.EqualFold(v, label(row[field])) {
			return false
		}
	}
	if v := query.Get("category"); v != "" && !refMatches(row["category"], v) {
		return false
	}
	if tags := query["tags"]; len(tags) > 0 {
		list, _ := row["tags"].([]any)
		for _, want := range tags {
			found := false
			for _, tag := range list {
				if refMatches(tag, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if v := query.Get("is_hot"); v != "" {
		want, err := strconv.ParseBool(v)
		if err == nil && row["is_hot"] != want {
			return false
		}
	}
	if !withinWindow(row["published_at"], query.Get("published_after"), query.Get("published_before")) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(query.Get("search"))); q != "" {
		hay := []string{label(row["id"])}
		for _, field := range sc.search {
			hay = append(hay, label(row[field]))
		}
		if !strings.Contains(strings.ToLower(strings.Join(hay, " ")), q) {
			return false
		}
	}
	return true
}

func withinWindow(published any, after, before string) bool {
	if after == "" && before == "" {
		return true
	}
	s, _ := published.(string)
	t, ok := jalali.ParseTime(s)
	if !ok {
		return false
	}
	if after != "" {
		if from, ok := jalali.ParseTime(after); ok && t.Before(from) {
			return false
		}
	}
	if before != "" {
		if to, ok := jalali.ParseTime(before); ok {
			if len(strings.TrimSpace(before)) <= len("2006-01-02") {
				to = to.Add(24*time.Hour - time.Nanosecond)
			}
			if t.After(to) {
				return false
			}
		}
	}
	return true
}

func refMatches(ref any, want string) bool {
	switch v := ref.(type) {
	case map[string]any:
		return label(v["id"]) == want || strings.EqualFold(label(v["slug"]), want)
	case nil:
		return false
	}
	return label(ref) == want
}

func label(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		return blog.RefLabel(t)
	}
	return fmt.Sprint(v)
}

// orderRows sorts by a comma separated DRF ordering such as "-published_at,title".
func orderRows(rows []map[string]any, ordering string) {
	fields := strings.Split(ordering, ",")
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range fields {
			f = strings.TrimSpace(f)
			desc := strings.HasPrefix(f, "-")
			f = strings.TrimPrefix(f, "-")
			cmp := compareValues(rows[i][f], rows[j][f])
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	ai, aok := toInt(a)
	bi, bok := toInt(b)
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aok && bok && !aStr && !bStr {
		return ai - bi
	}
	return strings.Compare(label(a), label(b))
}
