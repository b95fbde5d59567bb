package ragic

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit caps multi-record reads when the caller leaves Limit unset.
const DefaultLimit = 1000

// Filter operands understood by the "where" query parameter.
var Operands = []string{"eq", "gte", "lte", "gt", "lt", "like", "regex", "eqeq"}

// Filter is one "where" clause: field ID, operand, and condition value.
type Filter struct {
	Field   string
	Operand string
	Value   string
}

// Param is a free-form query parameter appended to read requests.
type Param struct {
	Key   string
	Value string
}

// ReadRequest selects records from a form.
//
// A non-nil RecordIndex reads one record in single entry mode; filters,
// limit and offset only apply to multi-record reads.
type ReadRequest struct {
	Form          string
	RecordIndex   *int
	Filters       []Filter
	Params        []Param
	Limit         int
	Offset        int
	HideSubtables bool
	IgnoreMasked  bool
}

// WriteOptions toggle server-side processing on create and update.
type WriteOptions struct {
	DoFormula        bool
	DoDefaultValue   bool
	DoLinkLoad       bool
	DoWorkflow       bool
	CheckLock        bool
	SkipNotification bool
}

// WriteRequest creates a record, or updates one when RecordIndex is set.
type WriteRequest struct {
	Form        string
	RecordIndex *int
	Body        any
	Options     WriteOptions
}

// query keeps Ragic's bare flags ("api", "n8n") which url.Values cannot express.
type query struct {
	parts []string
}

func newQuery(flags ...string) *query {
	return &query{parts: append([]string(nil), flags...)}
}

func (q *query) flag(name string) *query {
	q.parts = append(q.parts, name)
	return q
}

func (q *query) add(key, value string) *query {
	q.parts = append(q.parts, key+"="+value)
	return q
}

func (q *query) String() string {
	if len(q.parts) == 0 {
		return ""
	}
	return "?" + strings.Join(q.parts, "&")
}

// encodeComponent escapes a query component with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func recordPath(base, form string, recordIndex *int) string {
	p := strings.TrimRight(base, "/") + "/" + strings.Trim(form, "/")
	if recordIndex != nil {
		p += "/" + strconv.Itoa(*recordIndex)
	}
	return p
}

// RecordURL is the API URL of a form, or of one record when recordIndex is set.
func RecordURL(base, form string, recordIndex *int) string {
	return recordPath(base, form, recordIndex) + newQuery("api", "n8n").String()
}

// ReadURL builds the GET URL for a read request.
func ReadURL(base string, req ReadRequest) string {
	q := newQuery("api", "n8n")
	single := req.RecordIndex != nil

	if !single {
		for _, f := range req.Filters {
			q.add("where", f.Field+","+f.Operand+","+encodeComponent(f.Value))
		}
	}
	for _, p := range req.Params {
		q.add(encodeComponent(p.Key), encodeComponent(p.Value))
	}
	if single {
		q.flag("singleEntryMode")
	} else {
		limit := req.Limit
		if limit <= 0 {
			limit = DefaultLimit
		}
		q.add("limit", strconv.Itoa(limit))
		if req.Offset > 0 {
			q.add("offset", strconv.Itoa(req.Offset))
		}
	}
	if req.HideSubtables {
		q.add("subtables", "0")
	}
	if req.IgnoreMasked {
		q.add("ignoreMask", "true")
	}
	return recordPath(base, req.Form, req.RecordIndex) + q.String()
}

// WriteURL builds the POST URL for a create or update.
func WriteURL(base string, req WriteRequest) string {
	q := newQuery("api", "n8n")
	o := req.Options
	if o.DoFormula {
		q.add("doFormula", "true")
	}
	if o.DoDefaultValue {
		q.add("doDefaultValue", "true")
	}
	if o.DoLinkLoad {
		q.add("doLinkLoad", "true")
	}
	if o.DoWorkflow {
		q.add("doWorkflow", "true")
	}
	if o.CheckLock {
		q.add("checkLock", "true")
	}
	if o.SkipNotification {
		q.add("notification", "false")
	}
	return recordPath(base, req.Form, req.RecordIndex) + q.String()
}

// IsOperand reports whether op is a known filter operand.
func IsOperand(op string) bool {
	for _, o := range Operands {
		if o == op {
			return true
		}
	}
	return false
}
