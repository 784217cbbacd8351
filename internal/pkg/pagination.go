package pkg

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/memorial/internal/domain"
	"gorm.io/gorm"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
	defaultSort     = "id:desc"
)

// reservedParams lists query parameter names used for pagination/sorting, not for filtering.
var reservedParams = map[string]bool{
	"page":     true,
	"pageSize": true,
	"sort":     true,
}

// ParsePageRequest reads page, pageSize and sort from the query string.
// Every other non-empty parameter becomes a filter.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	req := domain.PageRequest{
		Page:     positiveQuery(c, "page", defaultPage),
		PageSize: min(positiveQuery(c, "pageSize", defaultPageSize), maxPageSize),
		Sort:     c.DefaultQuery("sort", defaultSort),
		Filter:   map[string]string{},
	}
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		req.Filter[key] = values[0]
	}
	return req
}

// positiveQuery returns the integer query parameter key, or def when it is
// missing, malformed or below 1.
func positiveQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on the page request.
func Paginate(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(pageOffset(req.Page, req.PageSize)).Limit(req.PageSize)
	}
}

// pageOffset is (page-1)*pageSize, saturating at math.MaxInt so a page far
// past the end selects nothing instead of wrapping around.
func pageOffset(page, pageSize int) int {
	if page <= 1 || pageSize <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// Fields maps the field names clients send to the columns they stand for.
// Anything not in the map is ignored, so raw input never reaches SQL.
type Fields map[string]string

// Sort returns a GORM scope ordering by req.Sort, a comma-separated list of
// field:direction clauses such as "fullName:asc,id:desc". Clauses with an
// unknown field or a direction other than asc or desc are skipped. The
// clauses in then follow, in the same form, as tiebreakers. A column is
// ordered on once; later clauses naming it again are dropped.
func Sort(req domain.PageRequest, fields Fields, then ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		seen := make(map[string]bool)
		for _, spec := range append([]string{req.Sort}, then...) {
			for clause := range strings.SplitSeq(spec, ",") {
				name, dir, ok := strings.Cut(clause, ":")
				if !ok {
					continue
				}
				column, known := fields[strings.TrimSpace(name)]
				if !known || seen[column] {
					continue
				}
				switch dir = strings.ToLower(strings.TrimSpace(dir)); dir {
				case "asc", "desc":
					seen[column] = true
					db = db.Order(column + " " + dir)
				}
			}
		}
		return db
	}
}

// Filter returns a GORM scope with one WHERE condition per known filter.
// A "__like" suffix on the name asks for a case-insensitive substring match
// instead of equality. Conditions are added in name order.
func Filter(req domain.PageRequest, fields Fields) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, key := range slices.Sorted(maps.Keys(req.Filter)) {
			value := req.Filter[key]
			if name, like := strings.CutSuffix(key, "__like"); like {
				if column, ok := fields[name]; ok {
					db = db.Where("LOWER("+column+") LIKE ? ESCAPE '\\'", ContainsPattern(value))
				}
				continue
			}
			if column, ok := fields[key]; ok {
				db = db.Where(column+" = ?", value)
			}
		}
		return db
	}
}

// NewPageResult wraps one page of items with its derived pagination metadata.
func NewPageResult[T any](items []T, total int64, req domain.PageRequest) *domain.PageResult[T] {
	if items == nil {
		items = []T{}
	}

	return &domain.PageResult[T]{
		Data:       items,
		Pagination: domain.NewPagination(req.Page, req.PageSize, total),
	}
}

// ContainsPattern returns a lower-cased LIKE pattern matching s anywhere,
// with LIKE wildcards in s escaped by a backslash. Use it with ESCAPE '\'.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
