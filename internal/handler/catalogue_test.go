package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/middleware"
	"github.com/unifyevents/backend/internal/model"
	"github.com/unifyevents/backend/internal/repository"
)

type catalogueEnv struct {
	mock     sqlmock.Sqlmock
	events   *EventHandler
	taxonomy *TaxonomyHandler
	browse   *BrowseHandler
}

func newCatalogueEnv(t *testing.T) (catalogueEnv, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	events := repository.NewEventRepo(db)
	slots := repository.NewSlotRepo(db)
	details := repository.NewDetailsRepo(db)
	constraints := repository.NewConstraintRepo(db)
	categories := repository.NewCategoryRepo(db)
	return catalogueEnv{
		mock:     mock,
		events:   NewEventHandler(events, slots, details, constraints, nil),
		taxonomy: NewTaxonomyHandler(categories, events),
		browse:   NewBrowseHandler(events, slots, details, constraints),
	}, func() { db.Close() }
}

// doRoute invokes one handler with an optional authenticated subject and
// path parameters.
func doRoute(t *testing.T, h echo.HandlerFunc, method, target, body string,
	sub *model.User, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sub != nil {
		c.Set(middleware.CtxUserID, sub.ID)
		c.Set(middleware.CtxRole, sub.Role)
	}
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func eventRow(id, organiserID uint64, published bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "organiser_id", "category_id", "parent_event_id", "name",
		"description", "image_key", "starts_at", "ends_at", "is_published",
		"created_at", "updated_at",
	}).AddRow(id, organiserID, nil, nil, "Conference", nil, nil,
		now, now.Add(2*time.Hour), published, now, now)
}

func organiser(id uint64) *model.User {
	return &model.User{ID: id, Role: model.RoleOrganiser}
}

func TestUpdateCategory(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT 1 FROM categories WHERE id").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	env.mock.ExpectExec("UPDATE categories SET name").
		WithArgs("Workshops", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRoute(t, env.taxonomy.UpdateCategory, http.MethodPut, "/v1/categories/3",
		`{"name":"Workshops"}`, organiser(9), map[string]string{"id": "3"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"Workshops"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateCategoryMissing(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT 1 FROM categories WHERE id").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	rec := doRoute(t, env.taxonomy.UpdateCategory, http.MethodPut, "/v1/categories/99",
		`{"name":"Ghost"}`, organiser(9), map[string]string{"id": "99"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateParentEventForbidden(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	// Stored owner is someone else.
	env.mock.ExpectQuery("SELECT organiser_id FROM parent_events WHERE id").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"organiser_id"}).AddRow(8))

	rec := doRoute(t, env.taxonomy.UpdateParentEvent, http.MethodPut, "/v1/parent-events/4",
		`{"name":"Festival 2027"}`, organiser(9), map[string]string{"id": "4"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestListParentEventEvents(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT .* FROM events WHERE is_published=1 AND parent_event_id").
		WithArgs(uint64(7)).
		WillReturnRows(eventRow(11, 9, true))

	rec := doRoute(t, env.browse.ListParentEventEvents, http.MethodGet,
		"/v1/parent-events/7/events", "", nil, map[string]string{"id": "7"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(out) != 1 || out[0]["id"] != float64(11) {
		t.Fatalf("unexpected list: %v", out)
	}
}

func TestUpsertConstraintValidation(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	cases := []struct {
		name string
		body string
	}{
		{"unknown type", `{"booking_type":"group"}`},
		{"multiple without upper", `{"booking_type":"multiple","lower_limit":2}`},
		{"range without lower", `{"booking_type":"multiple","upper_limit":5}`},
		{"lower above upper", `{"booking_type":"multiple","lower_limit":6,"upper_limit":5}`},
	}
	for _, tc := range cases {
		rec := doRoute(t, env.events.UpsertConstraint, http.MethodPut, "/v1/events/11/constraint",
			tc.body, organiser(9), map[string]string{"id": "11"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400: %s", tc.name, rec.Code, rec.Body.String())
		}
	}
}

func TestUpsertConstraintRange(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT .* FROM events WHERE id").
		WithArgs(uint64(11)).
		WillReturnRows(eventRow(11, 9, true))
	env.mock.ExpectExec("INSERT INTO participation_constraints").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doRoute(t, env.events.UpsertConstraint, http.MethodPut, "/v1/events/11/constraint",
		`{"booking_type":"multiple","lower_limit":2,"upper_limit":6}`,
		organiser(9), map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out["booking_type"] != "multiple" || out["lower_limit"] != float64(2) || out["upper_limit"] != float64(6) {
		t.Fatalf("unexpected body: %v", out)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertConstraintNotOwner(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT .* FROM events WHERE id").
		WithArgs(uint64(11)).
		WillReturnRows(eventRow(11, 8, true))

	rec := doRoute(t, env.events.UpsertConstraint, http.MethodPut, "/v1/events/11/constraint",
		`{"booking_type":"single"}`, organiser(9), map[string]string{"id": "11"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestUpsertDetails(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT .* FROM events WHERE id").
		WithArgs(uint64(11)).
		WillReturnRows(eventRow(11, 9, true))
	env.mock.ExpectExec("INSERT INTO event_details").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doRoute(t, env.events.UpsertDetails, http.MethodPut, "/v1/events/11/details",
		`{"venue":"Main Hall","description":"Doors open at noon."}`,
		organiser(9), map[string]string{"id": "11"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"Main Hall"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUpsertDetailsRejectsBadSchedule(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	rec := doRoute(t, env.events.UpsertDetails, http.MethodPut, "/v1/events/11/details",
		`{"venue":"Main Hall","starts_at":"noonish"}`,
		organiser(9), map[string]string{"id": "11"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestGetEventConstraintHidesDrafts(t *testing.T) {
	env, done := newCatalogueEnv(t)
	defer done()

	env.mock.ExpectQuery("SELECT .* FROM events WHERE id").
		WithArgs(uint64(11)).
		WillReturnRows(eventRow(11, 9, false))

	rec := doRoute(t, env.browse.GetEventConstraint, http.MethodGet,
		"/v1/events/11/constraint", "", nil, map[string]string{"id": "11"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
