package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContextDefaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Page != 1 || p.Limit != DefaultLimit {
		t.Errorf("got page=%d limit=%d, want 1/%d", p.Page, p.Limit, DefaultLimit)
	}
}

func TestFromContextClampsLimit(t *testing.T) {
	p := paramsFor(t, "page=3&limit=500")
	if p.Page != 3 {
		t.Errorf("page = %d, want 3", p.Page)
	}
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", p.Limit, MaxLimit)
	}
}

func TestOffsetAndSlice(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	if p.Offset() != 10 {
		t.Errorf("Offset = %d, want 10", p.Offset())
	}
	start, end := p.Slice(15)
	if start != 10 || end != 15 {
		t.Errorf("Slice(15) = [%d,%d), want [10,15)", start, end)
	}
	start, end = p.Slice(5)
	if start != 5 || end != 5 {
		t.Errorf("Slice(5) = [%d,%d), want empty window", start, end)
	}
}

func TestNewResponseTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
	}
	for _, tt := range tests {
		r := NewResponse(nil, tt.total, Params{Page: 1, Limit: tt.limit})
		if r.Pagination.TotalPages != tt.want {
			t.Errorf("total=%d limit=%d: totalPages = %d, want %d",
				tt.total, tt.limit, r.Pagination.TotalPages, tt.want)
		}
	}
}
