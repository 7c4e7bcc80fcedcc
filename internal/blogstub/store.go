package blogstub

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
)

var ErrNotFound = errors.New("not found")

type user struct {
	ID           int
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
}

func (u user) row() map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"full_name":  strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

type table struct {
	resource blog.Resource
	schema   schema
	nextID   int
	rows     []map[string]any
}

// Store is the stub's whole database. Rows are kept as the JSON objects the
// API returns.
type Store struct {
	mu       sync.RWMutex
	users    map[int]user
	nextUser int
	tables   map[string]*table
	now      func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{users: make(map[int]user), nextUser: 1, tables: make(map[string]*table), now: now}
	for _, res := range []blog.Resource{blog.Posts, blog.Categories, blog.Tags, blog.SeriesResource, blog.Comments, blog.Authors, blog.Reactions, blog.MediaResource} {
		s.tables[res.Name] = &table{resource: res, schema: schemas[res.Name], nextID: 1}
	}
	return s
}

func (s *Store) addUser(u user) user {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextUser
	s.nextUser++
	s.users[u.ID] = u
	return u
}

func (s *Store) userByName(username string) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return user{}, false
}

func (s *Store) user(id int) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) UserExists(id int) bool {
	_, ok := s.user(id)
	return ok
}

func (s *Store) IsAuthor(userID int) bool {
	_, err := s.Get(blog.Authors.Name, strconv.Itoa(userID))
	return err == nil
}

func (s *Store) allUsers() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.row())
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["id"].(int) < out[j]["id"].(int) })
	return out
}

func (s *Store) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		panic("blogstub: unknown table " + name)
	}
	return t
}

// List returns copies of every row of a resource.
func (s *Store) List(name string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.table(name)
	out := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, clone(row))
	}
	return out
}

func (s *Store) Get(name string, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.table(name)
	i := t.find(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return clone(t.rows[i]), nil
}

func (t *table) find(id string) int {
	for i, row := range t.rows {
		if fmt.Sprint(row[t.resource.Identity]) == id {
			return i
		}
	}
	return -1
}

// Create validates input against the resource schema and stores the row.
func (s *Store) Create(name string, input map[string]any, actor int) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(name)

	row := map[string]any{"id": t.nextID}
	for k, v := range t.schema.defaults {
		row[k] = v
	}
	now := s.now().UTC().Format(time.RFC3339)
	if t.schema.timestamps {
		row["created_at"] = now
		row["updated_at"] = now
	}

	if err := s.apply(t, row, input, actor, true); err != nil {
		return nil, err
	}
	t.nextID++
	t.rows = append(t.rows, row)
	return clone(row), nil
}

func (s *Store) Update(name string, id string, input map[string]any, actor int) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(name)
	i := t.find(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	row := clone(t.rows[i])
	if err := s.apply(t, row, input, actor, false); err != nil {
		return nil, err
	}
	if t.schema.timestamps {
		row["updated_at"] = s.now().UTC().Format(time.RFC3339)
	}
	t.rows[i] = row
	return clone(row), nil
}

func (s *Store) Delete(name string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(name)
	i := t.find(id)
	if i < 0 {
		return ErrNotFound
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

// Publish marks a post published, stamping published_at when it has none.
func (s *Store) Publish(slug string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(blog.Posts.Name)
	i := t.find(slug)
	if i < 0 {
		return nil, ErrNotFound
	}
	row := t.rows[i]
	row["status"] = "published"
	row["scheduled_at"] = nil
	if published, _ := row["published_at"].(string); published == "" {
		row["published_at"] = s.now().UTC().Format(time.RFC3339)
	}
	row["updated_at"] = s.now().UTC().Format(time.RFC3339)
	return clone(row), nil
}

// FieldErrors is a DRF style 400 body.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e[k], ", "))
	}
	return strings.Join(parts, "; ")
}

func (e FieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (s *Store) apply(t *table, row map[string]any, input map[string]any, actor int, creating bool) error {
	errs := FieldErrors{}
	sc := t.schema

	for field, kind := range sc.fields {
		v, present := input[field]
		if !present {
			continue
		}
		if !creating && contains(t.resource.Locked, field) {
			continue
		}
		val, ok := coerce(kind, v)
		if !ok {
			errs.add(field, kind.invalid())
			continue
		}
		row[field] = val
	}

	if sc.slugFrom != "" {
		if slug, _ := row["slug"].(string); slug == "" {
			row["slug"] = blog.Slugify(fmt.Sprint(row[sc.slugFrom]))
		}
	}
	if sc.owner != "" && creating {
		if _, ok := row[sc.owner].(int); !ok {
			row[sc.owner] = actor
		}
	}

	for _, field := range sc.required {
		if isBlank(row[field]) {
			errs.add(field, "This field is required.")
		}
	}
	for _, field := range sc.unique {
		if isBlank(row[field]) {
			continue
		}
		for _, other := range t.rows {
			if other["id"] != row["id"] && fmt.Sprint(other[field]) == fmt.Sprint(row[field]) {
				errs.add(field, fmt.Sprintf("%s with this %s already exists.", sc.singular, field))
			}
		}
	}
	if sc.hook != nil {
		sc.hook(s, row, input, actor, errs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// lookupRef returns a small nested object for a referenced row.
func (s *Store) lookupRef(name string, id int) (map[string]any, bool) {
	var row map[string]any
	for _, r := range s.table(name).rows {
		if r["id"] == id {
			row = r
			break
		}
	}
	if row == nil {
		return nil, false
	}
	ref := map[string]any{"id": row["id"]}
	for _, key := range []string{"name", "title", "slug"} {
		if v, ok := row[key]; ok {
			ref[key] = v
		}
	}
	return ref, true
}

func clone(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case int:
		return t == 0
	}
	return false
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindOptionalInt
	kindBool
	kindIntList
	kindDate
)

func (k kind) invalid() string {
	switch k {
	case kindInt, kindOptionalInt:
		return "A valid integer is required."
	case kindBool:
		return "Must be a valid boolean."
	case kindIntList:
		return "Expected a list of items."
	case kindDate:
		return "Datetime has wrong format."
	}
	return "Not a valid string."
}

func coerce(k kind, v any) (any, bool) {
	switch k {
	case kindString:
		if v == nil {
			return "", true
		}
		s, ok := v.(string)
		return strings.TrimSpace(s), ok
	case kindInt:
		return toInt(v)
	case kindOptionalInt:
		if v == nil {
			return nil, true
		}
		n, ok := toInt(v)
		if ok && n <= 0 {
			return nil, true
		}
		return n, ok
	case kindBool:
		b, ok := v.(bool)
		return b, ok
	case kindIntList:
		items, ok := v.([]any)
		if !ok {
			return nil, false
		}
		out := make([]int, 0, len(items))
		for _, item := range items {
			n, ok := toInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	case kindDate:
		if v == nil {
			return nil, true
		}
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		if strings.TrimSpace(s) == "" {
			return nil, true
		}
		t, ok := jalali.ParseTime(s)
		if !ok {
			return nil, false
		}
		return t.UTC().Format(time.RFC3339), true
	}
	return nil, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
