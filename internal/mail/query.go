package mail

// PageSize is the number of summaries returned by one list or search call.
const PageSize = 10

// Filter is a backend-neutral message filter. Backends translate the tree
// into their own query language.
type Filter interface {
	isFilter()
}

// InFolder matches messages filed in FolderID.
type InFolder struct{ FolderID string }

// SubjectContains matches messages whose subject contains Text.
type SubjectContains struct{ Text string }

// BodyContains matches messages whose body contains Text.
type BodyContains struct{ Text string }

// And matches when every condition matches.
type And []Filter

// Or matches when any condition matches.
type Or []Filter

// Not matches when Cond does not.
type Not struct{ Cond Filter }

func (InFolder) isFilter()        {}
func (SubjectContains) isFilter() {}
func (BodyContains) isFilter()    {}
func (And) isFilter()             {}
func (Or) isFilter()              {}
func (Not) isFilter()             {}

// SortReceivedAt is the sort property for the delivery timestamp.
const SortReceivedAt = "receivedAt"

// SortKey orders query results.
type SortKey struct {
	Property   string
	Descending bool
}

// Query is a filter plus sort and pagination window.
type Query struct {
	Filter         Filter
	Sort           []SortKey
	Offset         int
	Limit          int
	CalculateTotal bool
}

var newestFirst = []SortKey{{Property: SortReceivedAt, Descending: true}}

// BuildListQuery returns the query for one page of the inbox, newest first.
func BuildListQuery(inbox FolderRef, offset int) (Query, error) {
	if err := validateOffset(offset); err != nil {
		return Query{}, err
	}
	return Query{
		Filter: InFolder{FolderID: inbox.ID},
		Sort:   newestFirst,
		Offset: offset,
		Limit:  PageSize,
	}, nil
}

// BuildSearchQuery returns the query for one page of a keyword search over
// subject and body, excluding the junk and trash folders. The inbox reference
// does not restrict the search; messages in any other folder match too.
//
// An empty keyword is passed through and left to the backend to interpret.
func BuildSearchQuery(inbox, junk, trash FolderRef, keyword string, offset int) (Query, error) {
	if err := validateOffset(offset); err != nil {
		return Query{}, err
	}
	return Query{
		Filter: And{
			Or{SubjectContains{Text: keyword}, BodyContains{Text: keyword}},
			Not{Cond: InFolder{FolderID: junk.ID}},
			Not{Cond: InFolder{FolderID: trash.ID}},
		},
		Sort:           newestFirst,
		Offset:         offset,
		Limit:          PageSize,
		CalculateTotal: true,
	}, nil
}

func validateOffset(offset int) error {
	if offset < 0 {
		return validationError("offset", "offset must be a non-negative integer, got %d", offset)
	}
	return nil
}
